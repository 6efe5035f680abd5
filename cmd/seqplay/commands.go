package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmcsoft/seqplay"
	"github.com/rmcsoft/seqplay/internal/config"
)

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdToggle
	cmdSeek
	cmdStep
	cmdMotion
	cmdStatus
	cmdQuit
)

type command struct {
	kind  commandKind
	frame int
	// motion: reduced and set; set is false for "system"
	reduced bool
	set     bool
}

const usage = "commands: play | pause | toggle | seek N | motion on|off|system | status | quit"

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command, %s", usage)
	}

	switch fields[0] {
	case "play", "p":
		return command{kind: cmdPlay}, nil
	case "pause":
		return command{kind: cmdPause}, nil
	case "toggle", "t":
		return command{kind: cmdToggle}, nil
	case "status", "s":
		return command{kind: cmdStatus}, nil
	case "quit", "q", "exit":
		return command{kind: cmdQuit}, nil
	case "seek":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("seek needs a frame index")
		}
		frame, err := strconv.Atoi(fields[1])
		if err != nil {
			return command{}, fmt.Errorf("bad frame index %q", fields[1])
		}
		return command{kind: cmdSeek, frame: frame}, nil
	case "motion":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("motion needs on, off or system")
		}
		reduced, set, err := config.ParseOverride(fields[1])
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdMotion, reduced: reduced, set: set}, nil
	}
	return command{}, fmt.Errorf("unknown command %q, %s", fields[0], usage)
}

// execute applies cmd. It returns false when the program must stop.
func execute(cmd command, player *seqplay.SequencePlayer, pref *seqplay.MotionPreference) (string, bool, error) {
	var err error
	switch cmd.kind {
	case cmdPlay:
		err = player.Play()
	case cmdPause:
		err = player.Pause()
	case cmdToggle:
		err = player.Toggle()
	case cmdSeek:
		err = player.Seek(cmd.frame)
	case cmdStep:
		err = player.Seek(player.CurrentFrame() + cmd.frame)
	case cmdMotion:
		if cmd.set {
			err = pref.SetOverride(cmd.reduced)
		} else {
			err = pref.ClearOverride()
		}
	case cmdQuit:
		return "", false, nil
	}
	return describe(player, pref), true, err
}

func describe(player *seqplay.SequencePlayer, pref *seqplay.MotionPreference) string {
	motion := "system"
	if reduced, ok := pref.Override(); ok {
		motion = "off"
		if reduced {
			motion = "on"
		}
	}
	return fmt.Sprintf("%s frame=%d/%d loaded=%d%% reduced-motion=%s (effective %v)",
		player.State(), player.CurrentFrame(), player.FrameCount(), player.Progress().Percent(),
		motion, pref.ShouldSuppressMotion())
}
