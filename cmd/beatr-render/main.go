package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/engine"
	"github.com/beatr/beatr/oto"
	"github.com/beatr/beatr/project"
	"github.com/beatr/beatr/samples"
	"github.com/beatr/beatr/splice"
	"github.com/beatr/beatr/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	play := flag.Bool("p", false, "Play the input files (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered audio as .raw file. By default, saves mono float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered audio as .wav file.")
	pcm := flag.Bool("c", false, "Convert .raw output to 16-bit signed PCM.")
	bitDepth := flag.Int("bits", 16, "Bit depth of .wav output, 16 or 24.")
	sheet := flag.Bool("sheet", false, "Print the patterns as text instead of rendering them.")
	rate := flag.Int("rate", beatr.DefaultSampleRate, "Sample rate to render at.")
	block := flag.Int("block", beatr.DefaultBufferSize, "Block size used when rendering.")
	loops := flag.Int("loops", 1, "Number of loops to render for files without a timeline.")
	sampleDir := flag.String("samples", "", "Directory with <voice>.wav files replacing the built-in sounds.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut && !*sheet {
		*play = true
	}
	cfg := beatr.DefaultDeviceConfig()
	cfg.SampleRate = *rate
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	bank := samples.NewDefaultBank(*rate)
	if *sampleDir != "" {
		loaded, err := bank.LoadDir(*sampleDir, *rate)
		if err != nil {
			log.Fatal("could not load samples: ", err)
		}
		log.Printf("loaded %d samples from %v", len(loaded), *sampleDir)
	}
	output := func(filename, extension string, write func(f *os.File) error) error {
		dir := *directory
		if dir == "" {
			var err error
			if dir, err = os.Getwd(); err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
			}
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
		_, name := filepath.Split(filename)
		name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	process := func(filename string) error {
		e := engine.New(bank, *rate)
		duration, err := load(e, filename, *loops)
		if err != nil {
			return err
		}
		if *sheet {
			return printSheets(e)
		}
		e.Play()
		buffer := e.Render(int(math.Ceil(duration*float64(*rate))), *block)
		if f := e.Faults(); f.UnknownVoice+f.VoiceStolen > 0 {
			log.Printf("%v: %d unknown voice triggers, %d stolen voices", filename, f.UnknownVoice, f.VoiceStolen)
			logFaults(filename, e.Broker().DrainFaults(100*time.Millisecond))
		}
		if *rawOut {
			raw, err := beatr.Raw(buffer, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(filename, ".raw", func(f *os.File) error { _, err := f.Write(raw); return err }); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			err := output(filename, ".wav", func(f *os.File) error { return beatr.WriteWav(f, buffer, *rate, *bitDepth) })
			if err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			return playLive(e, cfg, duration)
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// load reads a project or a .splice file into e and returns how many seconds
// to render.
func load(e *engine.Engine, filename string, loops int) (float64, error) {
	if strings.EqualFold(filepath.Ext(filename), ".splice") {
		p, err := splice.DecodeFile(filename)
		if err != nil {
			return 0, err
		}
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		pat, tempo, skipped := p.ToPattern(name)
		for _, s := range skipped {
			log.Printf("%v: %v", filename, s)
		}
		if err := e.SetPatternSlot(0, pat); err != nil {
			return 0, err
		}
		if err := e.SetTempo(tempo); err != nil {
			return 0, err
		}
		return float64(max(loops, 1)) * beatr.LoopDurationSeconds(tempo), nil
	}
	p, err := project.Load(filename)
	if err != nil {
		return 0, err
	}
	if err := p.Apply(e); err != nil {
		return 0, err
	}
	if len(p.Timeline) > 0 {
		return p.Duration(), nil
	}
	return float64(max(loops, 1)) * p.Duration(), nil
}

// logFaults prints how often each fault occurred, in order of first
// appearance.
func logFaults(filename string, faults []engine.Fault) {
	var order []engine.Fault
	counts := map[engine.Fault]int{}
	for _, f := range faults {
		if counts[f] == 0 {
			order = append(order, f)
		}
		counts[f]++
	}
	for _, f := range order {
		log.Printf("%v: %v (%dx)", filename, f, counts[f])
	}
}

func printSheets(e *engine.Engine) error {
	for i := 0; i < beatr.NumPatternSlots; i++ {
		p, err := e.PatternSlot(i)
		if err != nil {
			return err
		}
		if p.IsEmpty() && i != e.CurrentSlot() {
			continue
		}
		if err := beatr.WriteSheet(os.Stdout, p, e.Tempo()); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

// playLive plays the loaded engine from the start through the sound card.
func playLive(e *engine.Engine, cfg beatr.DeviceConfig, duration float64) error {
	e.Stop()
	e.SetOpener(oto.Open)
	if err := e.ConfigureAudioDevice(cfg); err != nil {
		return err
	}
	defer e.Close()
	e.Play()
	time.Sleep(time.Duration(duration*float64(time.Second)) + 500*time.Millisecond)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Beatr command line utility for rendering project and .splice files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
