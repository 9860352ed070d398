// Command captcha-tessbench measures how well stock
// Tesseract OCR reads a labeled captcha corpus.
//
// It exists to give the trained model a baseline: if
// exact-match accuracy here is already good enough, the
// training pipeline is overkill for that corpus.
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/puriyaj/captchanet/data"
)

func main() {
	var dataDir string
	var verbose bool
	flag.StringVar(&dataDir, "data", "", "directory of labeled captcha images")
	flag.BoolVar(&verbose, "verbose", false, "print every prediction")
	flag.Parse()

	if dataDir == "" {
		log.Fatal("missing -data flag; see -help")
	}

	samples, err := data.Scan(dataDir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Found %d samples.", len(samples))

	client := gosseract.NewClient()
	defer client.Close()

	var correct int
	for _, sample := range samples {
		contents, err := os.ReadFile(sample.Path)
		if err != nil {
			log.Fatal(err)
		}
		if err := client.SetImageFromBytes(contents); err != nil {
			log.Fatal(err)
		}
		text, err := client.Text()
		if err != nil {
			log.Fatal(err)
		}
		text = strings.Join(strings.Fields(text), "")
		if text == sample.Label {
			correct++
		}
		if verbose {
			log.Printf("%s: got %q want %q", sample.Path, text, sample.Label)
		}
	}
	log.Printf("Exact matches: %d/%d", correct, len(samples))
}
