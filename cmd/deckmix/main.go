package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/deckmix-go"
	"github.com/cbegin/deckmix-go/internal/config"
	"github.com/cbegin/deckmix-go/internal/decode"
	"github.com/cbegin/deckmix-go/internal/library"
)

func main() {
	cfg := config.Load()
	var (
		sampleRate = flag.Int("sample-rate", cfg.SampleRate, "output sample rate")
		decks      = flag.Int("decks", cfg.Decks, "number of decks")
		deckA      = flag.String("a", "", "track to load on deck a")
		deckB      = flag.String("b", "", "track to load on deck b")
		cachePath  = flag.String("cache", cfg.CachePath, "bpm analysis cache (sqlite); empty disables")
		curve      = flag.String("curve", cfg.CrossfaderCurve, "crossfader curve: smooth|sharp")
		seed       = flag.Uint64("reverb-seed", cfg.ReverbSeed, "reverb impulse seed (0 = random)")
		micFile    = flag.String("mic-file", cfg.MicFile, "audio file looped as the microphone input")
		volume     = flag.Float64("volume", 1.0, "master volume")
		play       = flag.Bool("play", false, "start loaded decks immediately")
	)
	flag.Parse()

	law, err := deckmix.ParseCrossfadeLaw(*curve)
	if err != nil {
		log.Fatal(err)
	}
	opts := []deckmix.Option{
		deckmix.WithDeckCount(*decks),
		deckmix.WithCrossfadeLaw(law),
	}
	if *seed != 0 {
		opts = append(opts, deckmix.WithReverbSeed(*seed))
	}
	if *cachePath != "" {
		store, err := openCache(*cachePath)
		if err != nil {
			log.Printf("WARN analysis cache disabled: %v", err)
		} else {
			defer store.Close()
			opts = append(opts, deckmix.WithBPMCache(store))
		}
	}
	if *micFile != "" {
		opts = append(opts, deckmix.WithMicrophone(fileMicrophone(*micFile, *sampleRate)))
	}

	engine, err := deckmix.NewEngine(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()
	engine.Master().SetVolume(*volume)
	events := engine.Watch()

	for i, path := range []string{*deckA, *deckB} {
		if path == "" {
			continue
		}
		if err := loadFile(engine, i, path); err != nil {
			log.Fatal(err)
		}
	}
	if err := engine.Start(); err != nil {
		log.Fatal(err)
	}
	if *play {
		for i := 0; i < engine.DeckCount(); i++ {
			d, _ := engine.Deck(i)
			if err := d.Play(); err != nil && !errors.Is(err, deckmix.ErrNoTrack) {
				log.Printf("WARN play deck %s: %v", deckmix.DeckName(i), err)
			}
		}
	}

	go func() {
		for ev := range events {
			switch ev.Kind {
			case deckmix.EventBPMDetected:
				if ev.BPM > 0 {
					fmt.Printf("deck %s: %.0f bpm\n", deckmix.DeckName(ev.Deck), ev.BPM)
				} else {
					fmt.Printf("deck %s: tempo undetermined\n", deckmix.DeckName(ev.Deck))
				}
			case deckmix.EventPlaybackEnded:
				fmt.Printf("deck %s: playback ended\n", deckmix.DeckName(ev.Deck))
			case deckmix.EventMicUnavailable:
				fmt.Printf("microphone unavailable: %v\n", ev.Err)
			}
		}
	}()

	fmt.Println("commands: <deck>.<control> [value] | <control> [value] | load <deck> <file> | status | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if done := runCommand(engine, line); done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("WARN reading commands: %v", err)
	}
}

func runCommand(engine *deckmix.Engine, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return true
	case "status":
		printStatus(engine)
		return false
	case "load":
		if len(fields) != 3 {
			fmt.Println("usage: load <deck> <file>")
			return false
		}
		deck, err := deckmix.ParseDeck(fields[1])
		if err != nil {
			fmt.Println(err)
			return false
		}
		if err := loadFile(engine, deck, fields[2]); err != nil {
			fmt.Println(err)
		}
		return false
	}
	ev, err := deckmix.ParseControl(line)
	if err != nil {
		fmt.Println(err)
		return false
	}
	if err := engine.Apply(ev); err != nil {
		fmt.Printf("%s: %v\n", ev, err)
	}
	return false
}

func loadFile(engine *deckmix.Engine, deck int, path string) error {
	d, err := engine.Deck(deck)
	if err != nil {
		return err
	}
	pcm, key, err := decode.File(path)
	if err != nil {
		return err
	}
	if pcm.SampleRate != engine.SampleRate() {
		log.Printf("deck %s: resampling %s from %d Hz", deckmix.DeckName(deck), filepath.Base(path), pcm.SampleRate)
	}
	return d.Load(&deckmix.Track{
		Channels:   pcm.Channels,
		SampleRate: pcm.SampleRate,
		Name:       filepath.Base(path),
		Key:        key,
	})
}

func printStatus(engine *deckmix.Engine) {
	for i := 0; i < engine.DeckCount(); i++ {
		d, _ := engine.Deck(i)
		s := d.Status()
		state := "stopped"
		if s.Playing {
			state = "playing"
		}
		bpm := "-"
		switch {
		case s.Detecting:
			bpm = "detecting"
		case s.CurrentBPM > 0:
			bpm = fmt.Sprintf("%.1f (orig %.1f)", s.CurrentBPM, s.OriginalBPM)
		}
		fmt.Printf("deck %s [%s] %s %s bpm=%s pitch=%+.0fc side=%s\n",
			deckmix.DeckName(i), state, s.TrackName, s.TrackID, bpm, s.PitchCents, engine.Crossfade().Side(i))
	}
	m := engine.Master().Status()
	fmt.Printf("crossfader=%.2f (%s) master=%.2f reverb=%.2f mic=%v\n",
		engine.Crossfade().Position(), engine.Crossfade().Law(), m.Volume, m.Reverb, m.MicOnAir)
}

func openCache(path string) (*library.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return library.Open(path)
}
