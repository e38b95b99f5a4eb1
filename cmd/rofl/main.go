package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zaesho/rofl-dissect/rofl"
)

const usage = `Usage: rofl <command> [flags] <replay.rofl>

Commands:
  info      Print high-level info on the file and the game
  metadata  Print the game's metadata JSON
  payload   Print technical payload information
  sections  Decode segments and list their sections
  export    Export decoded chunk/keyframe data to a directory
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "metadata":
		err = runMetadata(os.Args[2:])
	case "payload":
		err = runPayload(os.Args[2:])
	case "sections":
		err = runSections(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open loads the file and parses its header. The library only works on
// in-memory buffers, so the whole file is read here.
func open(fs *flag.FlagSet) (*rofl.Replay, error) {
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one replay file, got %d args", fs.NArg())
	}
	buf, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	return rofl.Parse(buf)
}

func verboseFlag(fs *flag.FlagSet) *bool {
	return fs.Bool("v", false, "enable debug logging")
}

func applyVerbose(v bool) {
	if v {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	v := verboseFlag(fs)
	signature := fs.Bool("signature", false, "print the internal file signature")
	fs.Parse(args)
	applyVerbose(*v)

	r, err := open(fs)
	if err != nil {
		return err
	}
	fmt.Println(r.Header())
	p, err := r.Payload()
	if err != nil {
		return err
	}
	fmt.Printf("Game %d lasted %d seconds (%d chunks, %d keyframes)\n",
		p.MatchID, p.Duration/1000, p.ChunkCount, p.KeyframeCount)
	if *signature {
		fmt.Printf("Signature: %x\n", r.Header().Signature)
	}
	return nil
}

func runMetadata(args []string) error {
	fs := flag.NewFlagSet("metadata", flag.ExitOnError)
	v := verboseFlag(fs)
	fs.Parse(args)
	applyVerbose(*v)

	r, err := open(fs)
	if err != nil {
		return err
	}
	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	fmt.Println(meta)
	return nil
}

func runPayload(args []string) error {
	fs := flag.NewFlagSet("payload", flag.ExitOnError)
	v := verboseFlag(fs)
	fs.Parse(args)
	applyVerbose(*v)

	r, err := open(fs)
	if err != nil {
		return err
	}
	p, err := r.Payload()
	if err != nil {
		return err
	}
	fmt.Println(p)

	scanner, err := r.Segments(false)
	if err != nil {
		return err
	}
	for scanner.Next() {
		fmt.Println(scanner.Segment())
	}
	return scanner.Err()
}

func runSections(args []string) error {
	fs := flag.NewFlagSet("sections", flag.ExitOnError)
	v := verboseFlag(fs)
	withData := fs.Bool("data", false, "retain and print section data lengths from full decode")
	id := fs.Uint("id", 0, "only list sections of the segment with this id (0 = all)")
	fs.Parse(args)
	applyVerbose(*v)

	r, err := open(fs)
	if err != nil {
		return err
	}
	scanner, err := r.Segments(true)
	if err != nil {
		return err
	}
	for scanner.Next() {
		seg := scanner.Segment()
		if *id != 0 && seg.ID != uint32(*id) {
			continue
		}
		fmt.Println(seg)
		sections := seg.Sections(*withData)
		for sections.Next() {
			sec := sections.Section()
			fmt.Printf("  t=%9.3fs type=0x%04x params=%d len=%d\n",
				sec.Time.Seconds, sec.Type, sec.Params, len(sec.Data))
		}
		if err := sections.Err(); err != nil {
			log.Warn().Uint32("id", seg.ID).Int("offset", sections.Offset()).Err(err).Msg("section stream ended early")
		}
	}
	return scanner.Err()
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	v := verboseFlag(fs)
	dir := fs.String("dir", ".", "data export output directory")
	kind := fs.String("kind", "all", "what to export: chunk, keyframe, or all")
	workers := fs.Int("workers", 0, "parallel decode workers (0 = number of CPUs)")
	fs.Parse(args)
	applyVerbose(*v)

	r, err := open(fs)
	if err != nil {
		return err
	}
	if *kind != "all" && *kind != "chunk" && *kind != "keyframe" {
		return fmt.Errorf("unknown kind %q", *kind)
	}
	results, err := r.DecodeSegments(context.Background(), *workers)
	if err != nil {
		return err
	}
	exported := 0
	for _, res := range results {
		seg := res.Segment
		if res.Err != nil {
			log.Warn().Err(res.Err).Msg("skipping segment")
			continue
		}
		if *kind == "chunk" && seg.Kind != rofl.Chunk {
			continue
		}
		if *kind == "keyframe" && seg.Kind != rofl.Keyframe {
			continue
		}
		name := fmt.Sprintf("%s_%d.bin", seg.Kind, seg.ID)
		if err := os.WriteFile(filepath.Join(*dir, name), seg.Data, 0o644); err != nil {
			return err
		}
		exported++
	}
	fmt.Printf("Exported %d of %d segments to %s\n", exported, len(results), *dir)
	return nil
}
