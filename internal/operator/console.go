package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pterm/pterm"

	"holdem-table/card"
	"holdem-table/holdem"
)

// Controller is the part of the coordinator the operator drives.
type Controller interface {
	StartNextHand(ctx context.Context) error
	Snapshot() holdem.Snapshot
}

// Console reads operator commands line by line.
type Console struct {
	ctl Controller
	in  io.Reader
	out io.Writer
}

func NewConsole(ctl Controller, in io.Reader, out io.Writer) *Console {
	return &Console{ctl: ctl, in: in, out: out}
}

// Run handles commands until quit, EOF, or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	c.printf(pterm.Info.Sprint("operator console ready, type 'help' for commands"))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "", "n", "next", "start":
		if err := c.ctl.StartNextHand(ctx); err != nil {
			log.Printf("[Operator] Start hand rejected: %v", err)
			c.printf(pterm.Warning.Sprintf("cannot start hand: %v", err))
			return false
		}
		snap := c.ctl.Snapshot()
		c.printf(pterm.Success.Sprintf("hand #%d started", snap.HandNumber))
		c.printf(RenderState(snap))
	case "s", "state":
		c.printf(RenderState(c.ctl.Snapshot()))
	case "h", "help":
		c.printf(pterm.Info.Sprint("next | state | help | quit"))
	case "q", "quit", "exit":
		c.printf(pterm.Info.Sprint("bye"))
		return true
	default:
		c.printf(pterm.Error.Sprintf("unknown command %q", cmd))
	}
	return false
}

func (c *Console) printf(s string) {
	fmt.Fprintln(c.out, strings.TrimRight(s, "\n"))
}

// RenderState draws the table as pterm panels. Hole cards stay hidden unless
// the hand reached showdown.
func RenderState(snap holdem.Snapshot) string {
	view := snap.ViewFor("")
	if len(view.Players) == 0 {
		return pterm.Info.Sprint("table is empty")
	}

	seats := make([]pterm.Panel, 0, len(view.Players))
	for i, p := range view.Players {
		seats = append(seats, pterm.Panel{Data: seatBox(view, i, p)})
	}
	board := pterm.Panel{Data: boardBox(view)}

	out, err := pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		seats,
		{board},
	}).Srender()
	if err != nil {
		return fmt.Sprintf("render failed: %v", err)
	}
	return out
}

func seatBox(view holdem.View, idx int, p holdem.PlayerView) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(2)

	var status string
	switch {
	case !p.Online:
		status = pterm.Gray("Offline")
	case p.SittingOut:
		status = pterm.Gray("Sitting out")
	case p.Folded:
		status = pterm.LightRed("Folded")
	case p.AllIn:
		status = pterm.LightYellow("All-in")
	default:
		status = pterm.LightGreen("Active")
	}

	var marks []string
	if idx == view.DealerIndex {
		marks = append(marks, "D")
	}
	if idx == view.SmallBlindIndex {
		marks = append(marks, "SB")
	}
	if idx == view.BigBlindIndex {
		marks = append(marks, "BB")
	}
	if view.HandInProgress && idx == view.CurrentActorIndex {
		marks = append(marks, pterm.LightCyan("to act"))
	}

	body := pterm.Sprintfln("%s %s", status, strings.Join(marks, " "))
	body += pterm.Sprintfln("Stack: %d", p.Stack)
	body += pterm.Sprintfln("Bet: %d", p.CurrentBet)
	if len(p.HoleCards) > 0 {
		body += pterm.Sprintfln("%s", prettyCards(p.HoleCards))
	}
	if p.HandResult != nil {
		body += pterm.Sprintfln("%s", p.HandResult.Label)
	}
	return pbox.WithTitle(p.Name).WithTitleTopLeft().Sprint(strings.TrimRight(body, "\n"))
}

func boardBox(view holdem.View) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4)
	title := pterm.LightYellow(fmt.Sprintf("|HAND #%d|", view.HandNumber))

	body := pterm.Sprintfln("Board: %s", prettyCards(view.CommunityCards))
	body += pterm.Sprintfln("Pot: %d  Max bet: %d", view.Pot, view.CurrentMaxBet)
	switch {
	case view.HandInProgress:
		body += "In progress"
	case len(view.Winners) > 0:
		body += pterm.Sprintf("Winners: %s", pterm.LightGreen(strings.Join(view.Winners, ", ")))
	default:
		body += "Waiting for next hand"
	}
	return pbox.WithTitle(title).WithTitleTopCenter().Sprint(body)
}

func prettyCards(cards []card.Card) string {
	if len(cards) == 0 {
		return "-"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.Pretty()
	}
	return strings.Join(parts, " ")
}
