// Command captcha-solve prints the predicted text for
// captcha image files using a saved artifact.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/puriyaj/captchanet/solver"
)

func main() {
	var artifact string
	flag.StringVar(&artifact, "solver", "solver_out", "artifact file from captcha-train")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("no image files given; usage: captcha-solve [flags] image ...")
	}

	s, err := solver.Load(artifact)
	if err != nil {
		log.Fatal(err)
	}

	for _, path := range flag.Args() {
		text, err := s.PredictFile(path)
		if err != nil {
			log.Printf("%s: %s", path, err)
			continue
		}
		fmt.Printf("%s: %s\n", path, text)
	}
}
