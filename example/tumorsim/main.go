package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	"github.com/sugarme/gotch/ts"

	"github.com/Yeray-Martin-Ruisanchez-TumorNetSolvers/TumorNetSolvers/unet"
)

// flag variables
var (
	PlansPath  string
	DataPath   string
	ParamsPath string
	CaseID     string
	OutPath    string
	Cuda       bool
	Device     gotch.Device
)

// hyperparameters
var (
	Size     int // cubic volume extent fed to the network
	Classes  int // output class count
	Channels int // input channel count
)

func init() {
	flag.StringVar(&PlansPath, "plans", "./plans.json", "specify architecture plans JSON file")
	flag.StringVar(&DataPath, "input", "./input", "specify directory holding axial TIFF/PNG slices")
	flag.StringVar(&ParamsPath, "params", "./params.csv", "specify CSV file with per-case biophysical parameters")
	flag.StringVar(&CaseID, "case", "", "specify case id to look up in the params CSV")
	flag.StringVar(&OutPath, "out", "./output", "specify output directory")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.IntVar(&Size, "size", 64, "specify cubic volume extent")
	flag.IntVar(&Classes, "classes", 3, "specify output class count")
	flag.IntVar(&Channels, "channels", 1, "specify input channel count")
}

func main() {
	flag.Parse()

	DataPath = absPath(DataPath)
	OutPath = absPath(OutPath)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.CudaIfAvailable()
	}

	plans, err := unet.LoadPlans(PlansPath)
	if err != nil {
		log.Fatal(err)
	}

	vs := nn.NewVarStore(Device)
	shape := []int64{int64(Size), int64(Size), int64(Size)}
	net, err := unet.BuildNetwork(vs, plans, int64(Channels), int64(Classes), shape, nil, true)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("built %v (param dim %v, deep supervision %v)\n", plans.Architecture, net.ParamDim(), net.DeepSupervision())

	volume, err := loadVolume(DataPath, int64(Size))
	if err != nil {
		log.Fatal(err)
	}

	params, err := readParams(ParamsPath, CaseID, net.ParamDim())
	if err != nil {
		log.Fatal(err)
	}
	paramTs := ts.MustOfSlice(params).MustView([]int64{1, net.ParamDim()}, true).MustTotype(gotch.Float, true)

	vol := volume.MustTo(Device, false)
	par := paramTs.MustTo(Device, false)
	pred := net.ForwardT(vol, par, false)
	fmt.Printf("prediction shape: %v\n", pred.MustSize())

	if err := writePreview(pred, int64(Classes), filepath.Join(OutPath, "preview.png")); err != nil {
		log.Fatal(err)
	}
	if err := writeHistogram(volume, filepath.Join(OutPath, "intensity-histo.png")); err != nil {
		log.Fatal(err)
	}

	pred.MustDrop()
	par.MustDrop()
	vol.MustDrop()
	paramTs.MustDrop()
	volume.MustDrop()
}

func absPath(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		log.Fatal(err)
	}

	return p
}
