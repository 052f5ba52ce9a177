package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/dmg-core/sharpboy/internal/render/terminal"
	"github.com/dmg-core/sharpboy/internal/savestate"
	"github.com/dmg-core/sharpboy/internal/system"
)

func main() {
	app := cli.NewApp()
	app.Name = "sharpboy"
	app.Description = "A Sharp-LR35902 (Game Boy) core emulator"
	app.Usage = "sharpboy [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (.gb, .gbc, or .zip containing one)",
		},
		cli.StringFlag{
			Name:  "boot-rom",
			Usage: "Path to an optional boot ROM image to run before the cartridge",
		},
		cli.BoolFlag{
			Name:  "cgb",
			Usage: "Start in CGB-capable mode",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a terminal front end",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.StringFlag{
			Name:  "load-state",
			Usage: "Load a save-state file before running",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Write a save-state file after the run completes (headless mode only)",
		},
		cli.BoolFlag{
			Name:  "respect-illegal-reads-writes",
			Usage: "Relax the VRAM/OAM/OAM-DMA access gates for test-ROM development",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("sharpboy: fatal", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	sys := system.New(c.Bool("cgb"))
	if err := sys.LoadCartridge(romPath); err != nil {
		return err
	}
	defer sys.Close()

	sys.SetRespectIllegalReadsWrites(c.Bool("respect-illegal-reads-writes"))

	if bootPath := c.String("boot-rom"); bootPath != "" {
		rom, err := os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("sharpboy: failed to read boot ROM: %w", err)
		}
		sys.SetBootROM(rom)
	}

	if loadPath := c.String("load-state"); loadPath != "" {
		f, err := os.Open(loadPath)
		if err != nil {
			return fmt.Errorf("sharpboy: failed to open save state: %w", err)
		}
		defer f.Close()
		if err := savestate.Load(f, sys); err != nil {
			return err
		}
	}

	if c.Bool("headless") {
		return runHeadless(c, sys)
	}

	renderer, err := terminal.New(sys)
	if err != nil {
		return err
	}
	return renderer.Run()
}

func runHeadless(c *cli.Context, sys *system.System) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	slog.Info("sharpboy: running headless", "frames", frames)
	for i := 0; i < frames; i++ {
		sys.RunFrame()
	}

	if savePath := c.String("save-state"); savePath != "" {
		f, err := os.Create(savePath)
		if err != nil {
			return fmt.Errorf("sharpboy: failed to create save state: %w", err)
		}
		defer f.Close()
		if err := savestate.Save(f, sys); err != nil {
			return err
		}
	}

	slog.Info("sharpboy: headless run complete", "frames", frames)
	return nil
}
