package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"salesbot/internal/domain"
)

// FailureReply is sent whenever a command cannot be answered.
const FailureReply = "Sorry, something went wrong while loading sales data."

// HelpText lists the supported chat commands.
const HelpText = "Commands:\n" +
	"  sales today|week|month [group]  total sales for the period\n" +
	"  chart [group]                   daily totals for the last 7 days\n" +
	"  forecast                        next-day estimate\n" +
	"  help                            this message"

// ErrUnknownCommand is returned for unrecognized input.
var ErrUnknownCommand = errors.New("unknown command")

// Commands dispatches chat commands to the Service.
type Commands struct {
	svc    *Service
	logger *log.Logger
}

// NewCommands creates a command dispatcher. A nil logger uses log.Default().
func NewCommands(svc *Service, logger *log.Logger) *Commands {
	if logger == nil {
		logger = log.Default()
	}
	return &Commands{svc: svc, logger: logger}
}

// Handle answers a chat command. Errors are logged and replaced by FailureReply.
func (c *Commands) Handle(ctx context.Context, text string) string {
	reply, err := c.dispatch(ctx, strings.Fields(strings.ToLower(text)))
	if err != nil {
		if errors.Is(err, ErrUnknownCommand) {
			return HelpText
		}
		c.logger.Printf("Command %q failed: %v", text, err)
		return FailureReply
	}
	return reply
}

func (c *Commands) dispatch(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUnknownCommand
	}

	switch args[0] {
	case "sales":
		return c.sales(ctx, args[1:])
	case "chart":
		return c.chart(ctx, args[1:])
	case "forecast":
		return c.forecast(ctx)
	case "help":
		return HelpText, nil
	default:
		return "", ErrUnknownCommand
	}
}

func (c *Commands) sales(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUnknownCommand
	}
	period, err := domain.ParsePeriod(args[0])
	if err != nil {
		return "", ErrUnknownCommand
	}
	groupID, err := optionalGroup(args[1:])
	if err != nil {
		return "", err
	}

	total, err := c.svc.Total(ctx, period, groupID)
	if err != nil {
		return "", err
	}

	scope := "all groups"
	if groupID != nil {
		scope = fmt.Sprintf("group %d", *groupID)
	}
	return fmt.Sprintf("Sales %s (%s): %d", period, scope, total), nil
}

func (c *Commands) chart(ctx context.Context, args []string) (string, error) {
	groupID, err := optionalGroup(args)
	if err != nil {
		return "", err
	}

	chart, err := c.svc.Chart(ctx, groupID)
	if err != nil {
		return "", err
	}

	var max int64
	for _, d := range chart {
		if d.Total > max {
			max = d.Total
		}
	}

	var b strings.Builder
	b.WriteString("Last 7 days:\n")
	for _, d := range chart {
		bar := 0
		if max > 0 {
			bar = int(d.Total * 20 / max)
		}
		fmt.Fprintf(&b, "%s %-20s %d\n", d.Date.Format("Mon 01-02"), strings.Repeat("#", bar), d.Total)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Commands) forecast(ctx context.Context) (string, error) {
	f, err := c.svc.Forecast(ctx)
	if err != nil {
		if errors.Is(err, ErrNoForecast) {
			return "Not enough data for a forecast yet.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Forecast for the next day: %d (confidence %s, based on %s, trend %+.1f%%)",
		f.PredictedNext, f.Confidence, f.BasedOn.Format(time.DateOnly), f.Trend*100), nil
}

func optionalGroup(args []string) (*int64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, ErrUnknownCommand
	}
	return &id, nil
}
