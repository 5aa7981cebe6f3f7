package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/config"
	"github.com/beatr/beatr/engine"
	"github.com/beatr/beatr/headless"
	"github.com/beatr/beatr/midiin"
	"github.com/beatr/beatr/oto"
	"github.com/beatr/beatr/project"
	"github.com/beatr/beatr/samples"
	"github.com/beatr/beatr/tui"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")
var settingsPath = flag.String("config", "", "read settings from `file` instead of the user config directory")
var defaultMidiInput = flag.String("midi-input", "", "connect MIDI input to matching device name prefix")
var noSoundCard = flag.Bool("headless", false, "run the engine on a timer instead of the sound card")
var sampleRate = flag.Int("rate", 0, "override the sample rate from the settings")
var bufferSize = flag.Int("buffer", 0, "override the buffer size from the settings")
var sampleDir = flag.String("samples", "", "load <voice>.wav files from `dir` over the built-in sounds")
var saveTo = flag.String("save", "", "save the project to `file` on exit")
var logFile = flag.String("log", "", "write log messages to `file` while the UI is running")

func main() {
	flag.Parse()
	var f *os.File
	if *cpuprofile != "" {
		var err error
		f, err = os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
	}
	path := *settingsPath
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			log.Printf("no user config directory, using default settings: %v", err)
		}
	}
	settings := config.Default()
	if path != "" {
		var err error
		if settings, _, err = config.Load(path); err != nil {
			log.Printf("using default settings: %v", err)
		}
	}
	for _, c := range settings.Sanitize() {
		log.Print(c)
	}
	cfg := settings.DeviceConfig()
	if isFlagPassed("rate") {
		cfg.SampleRate = *sampleRate
	}
	if isFlagPassed("buffer") {
		cfg.BufferSize = *bufferSize
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	bank := samples.NewDefaultBank(cfg.SampleRate)
	if *sampleDir != "" {
		loaded, err := bank.LoadDir(*sampleDir, cfg.SampleRate)
		if err != nil {
			log.Printf("could not load samples from %v: %v", *sampleDir, err)
		}
		log.Printf("loaded %d samples from %v", len(loaded), *sampleDir)
	}
	e := engine.New(bank, cfg.SampleRate)
	if err := e.SetMasterVolume(settings.Audio.MasterVolume); err != nil {
		log.Print(err)
	}
	if err := e.SetTempo(settings.Defaults.Tempo); err != nil {
		log.Print(err)
	}
	proj := project.New("untitled", e.Tempo())
	if a := flag.Args(); len(a) > 0 {
		p, err := project.Load(a[0])
		if err == nil {
			err = p.Apply(e)
		}
		if err != nil {
			log.Printf("could not load project %v: %v", a[0], err)
		} else {
			proj = p
			if *saveTo == "" && project.IsProjectFile(a[0]) {
				*saveTo = a[0]
			}
		}
	}

	if *noSoundCard {
		e.SetOpener(headless.Open)
	} else {
		e.SetOpener(oto.Open)
	}
	if err := e.ConfigureAudioDevice(cfg); err != nil {
		if *noSoundCard {
			log.Fatal(err)
		}
		log.Printf("audio device failed, continuing without sound: %v", err)
		e.SetOpener(headless.Open)
		if err := e.ConfigureAudioDevice(beatr.DeviceConfig{SampleRate: cfg.SampleRate, BufferSize: cfg.BufferSize}); err != nil {
			log.Fatal(err)
		}
	}

	midiContext := midiin.NewContext()
	defer midiContext.Close()
	input := settings.MIDI.Input
	if isFlagPassed("midi-input") {
		input = *defaultMidiInput
	}
	if input != "" {
		name, err := midiContext.OpenByPrefix(input, midiin.NewHandler(e))
		if err != nil {
			log.Printf("failed to open MIDI input '%s': %v", input, err)
		} else {
			log.Printf("listening to MIDI input '%s'", name)
		}
	}

	if *logFile != "" {
		lf, err := tea.LogToFile(*logFile, "beatr")
		if err != nil {
			log.Fatal("could not open log file: ", err)
		}
		defer lf.Close()
	}
	if _, err := tea.NewProgram(tui.NewModel(e), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if err := e.Close(); err != nil {
		log.Printf("closing audio: %v", err)
	}
	if f := e.Faults(); f.Dropped+f.Contention > 0 {
		log.Printf("%d contended blocks, %d fault reports dropped", f.Contention, f.Dropped)
	}
	for _, f := range e.Broker().DrainFaults(10 * time.Millisecond) {
		log.Printf("unreported fault: %v", f)
	}
	if path != "" {
		settings.Audio.MasterVolume = e.MasterVolume()
		settings.Defaults.Tempo = e.Tempo()
		if err := settings.Save(path); err != nil {
			log.Print(err)
		}
	}
	if *saveTo != "" {
		proj.Capture(e)
		if err := proj.Save(*saveTo); err != nil {
			log.Printf("could not save project: %v", err)
		}
	}
	if *cpuprofile != "" {
		pprof.StopCPUProfile()
		f.Close()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
