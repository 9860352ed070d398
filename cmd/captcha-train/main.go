// Command captcha-train trains a captcha reading model on
// a directory of labeled images and saves the resulting
// artifact.
//
// Each image's label is its file name minus the
// extension.
package main

import (
	"flag"
	"log"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/rip"

	"github.com/puriyaj/captchanet/data"
	"github.com/puriyaj/captchanet/model"
	"github.com/puriyaj/captchanet/preproc"
	"github.com/puriyaj/captchanet/solver"
	"github.com/puriyaj/captchanet/train"
	"github.com/puriyaj/captchanet/vocab"
)

func main() {
	var dataDir string
	var outFile string
	var width, height int
	var batchSize int
	var epochs int
	var patience int
	var workers int
	var rate float64
	var trainFrac float64
	var seed int64

	flag.StringVar(&dataDir, "data", "", "directory of labeled captcha images")
	flag.StringVar(&outFile, "out", "solver_out", "output artifact file")
	flag.IntVar(&width, "width", preproc.DefaultWidth, "input image width")
	flag.IntVar(&height, "height", preproc.DefaultHeight, "input image height")
	flag.IntVar(&batchSize, "batch", 16, "SGD batch size")
	flag.IntVar(&epochs, "epochs", 100, "maximum number of epochs (0 for unlimited)")
	flag.IntVar(&patience, "patience", 10, "epochs without improvement before stopping")
	flag.IntVar(&workers, "workers", 0, "preprocessing workers (0 for GOMAXPROCS)")
	flag.Float64Var(&rate, "rate", 0.001, "learning rate")
	flag.Float64Var(&trainFrac, "trainfrac", data.DefaultTrainFrac, "training set fraction")
	flag.Int64Var(&seed, "seed", 1337, "split shuffle seed")
	flag.Parse()

	if dataDir == "" {
		log.Fatal("missing -data flag; see -help")
	}

	creator := anyvec32.CurrentCreator()

	samples, err := data.Scan(dataDir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Found %d samples.", len(samples))

	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = s.Label
	}
	codec := vocab.NewCodec(labels)
	log.Printf("Alphabet is %q (max label length %d).", codec.Alphabet(),
		codec.MaxLabelLen())

	prep := &preproc.Preprocessor{Width: width, Height: height}
	list := data.NewList(creator, samples, prep, codec)
	training, validation, err := data.Split(list, trainFrac, true, seed)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Split: %d training, %d validation.", training.Len(), validation.Len())

	m, err := model.New(creator, width, height, codec.NumClasses(), codec.MaxLabelLen())
	if err != nil {
		log.Fatal(err)
	}

	t := &train.Trainer{
		Model:   m,
		Params:  m.Parameters(),
		Workers: workers,
		Average: true,
	}
	loop := &train.Loop{
		Trainer:     t,
		Training:    training,
		Validation:  validation,
		BatchSize:   batchSize,
		Rate:        rate,
		MaxEpochs:   epochs,
		Patience:    patience,
		RestoreBest: true,
		StatusFunc: func(epoch int, trainCost, validCost float64) {
			log.Printf("epoch %d: cost=%f validation=%f", epoch, trainCost, validCost)
		},
	}

	log.Println("Press ctrl+c once to stop...")
	if err := loop.Run(rip.NewRIP().Chan()); err != nil {
		log.Fatal(err)
	}

	s := solver.New(codec, m)
	if err := s.Save(outFile); err != nil {
		log.Fatal(err)
	}
	log.Printf("Saved artifact to %s.", outFile)

	printAccuracy(s, validation)
}

func printAccuracy(s *solver.Solver, validation *data.List) {
	var correct int
	for i, label := range validation.Labels() {
		actual, err := s.PredictFile(validation.Samples[i].Path)
		if err != nil {
			log.Printf("validate %s: %s", validation.Samples[i].Path, err)
			continue
		}
		if actual == label {
			correct++
		}
	}
	log.Printf("Validation exact matches: %d/%d", correct, validation.Len())
}
