package svgpng_test

import (
	"context"
	"fmt"
	"log"
	"time"

	svgpng "github.com/porticus-lab/go-svg-png"
)

func Example() {
	res, err := svgpng.ConvertFile(context.Background(), "logo.svg", "logo.png", 300, true,
		svgpng.WithNoSandbox())
	if err != nil {
		log.Fatal(err)
	}

	w, h := res.PixelSize()
	fmt.Printf("Wrote %s: %dx%d px, %d bytes\n", res.Path, w, h, res.Len())
}

func Example_workspace() {
	// One workspace serves many conversions.
	ws, err := svgpng.NewWorkspace("")
	if err != nil {
		log.Fatal(err)
	}
	defer ws.Close()

	c := svgpng.NewConverter(ws,
		svgpng.WithTimeout(10*time.Second),
		svgpng.WithNoSandbox(),
	)
	for _, name := range []string{"a", "b", "c"} {
		req := svgpng.NewRequest(name+".svg", name+".png", 150, false)
		if _, err := c.Convert(context.Background(), req); err != nil {
			log.Printf("%s: %s", name, svgpng.FailureText(err))
		}
	}
}

func Example_engine() {
	engine, err := svgpng.EngineByName("rod")
	if err != nil {
		log.Fatal(err)
	}
	_, err = svgpng.ConvertFile(context.Background(), "diagram.svg", "diagram.png", 96, true,
		svgpng.WithEngine(engine), svgpng.WithAutoDownload())
	if err != nil {
		log.Fatal(err)
	}
}
