package sequence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Action is one numbered step a sequence can run. Code 0 is reserved as the
// stop marker.
type Action struct {
	Code  int
	Title string
	Run   func(ctx context.Context) error
}

// Runner executes numbered actions in the order a sequence string lists
// them.
type Runner struct {
	actions map[int]Action
	logger  *zap.Logger
}

// NewRunner creates a runner over the given actions.
func NewRunner(logger *zap.Logger, actions ...Action) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		actions: make(map[int]Action, len(actions)),
		logger:  logger,
	}
	for _, a := range actions {
		r.actions[a.Code] = a
	}
	return r
}

// Parse splits a sequence string like "1, 2,3" into action codes.
func Parse(seq string) ([]int, error) {
	var codes []int
	for _, part := range strings.Split(strings.ReplaceAll(seq, " ", ""), ",") {
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid action code in sequence: %q", part)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Run executes the codes in order. Code 0 stops the sequence; an unknown
// code is logged and skipped; an action error aborts the run.
func (r *Runner) Run(ctx context.Context, codes []int) error {
	for _, code := range codes {
		if code == 0 {
			r.logger.Info("exit code encountered, stopping sequence")
			return nil
		}

		action, ok := r.actions[code]
		if !ok {
			r.logger.Error("unknown action code", zap.Int("code", code))
			continue
		}

		r.logger.Info("running action",
			zap.Int("code", code),
			zap.String("title", action.Title))
		if err := action.Run(ctx); err != nil {
			return fmt.Errorf("action %d (%s) failed: %w", code, action.Title, err)
		}
	}
	return nil
}

// Titles returns "code. title" lines for help output, sorted by code.
func (r *Runner) Titles() []string {
	codes := make([]int, 0, len(r.actions))
	for code := range r.actions {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	lines := make([]string, 0, len(codes))
	for _, code := range codes {
		lines = append(lines, fmt.Sprintf("%d. %s", code, r.actions[code].Title))
	}
	return lines
}
