package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sells-group/force-pipeline/internal/feedback"
	"github.com/sells-group/force-pipeline/internal/force"
	"github.com/sells-group/force-pipeline/internal/model"
	"github.com/sells-group/force-pipeline/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work through the prioritized opportunity queue",
	Long: `Interactive review loop. Commands:
  n / p        next / previous opportunity
  send         send outreach (ready only, undoable for 30s)
  skip         skip (undoable for 30s)
  won / lost   close out (undoable for 30s)
  dismiss <reason>   dismiss; reasons: not_relevant, wrong_force, misclassified, duplicate, other
  undo         reverse the most recent action within its window
  filter <ready|sent|all>
  q            quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver, err := loadResolver()
		if err != nil {
			return err
		}

		open, err := st.ListOpenOpportunities(ctx, "")
		if err != nil {
			return err
		}

		session := review.NewSession(open, st,
			review.WithFilter(review.Filter(cfg.Review.DefaultFilter)),
			review.WithUndoWindow(undoWindow()),
			review.WithNotifier(consoleNotifier{}),
			review.WithComposer(consoleComposer{resolver: resolver}),
			review.WithFeedback(feedback.NewWebhookSink(cfg.Feedback.WebhookURL)),
		)

		return runReviewLoop(ctx, session, resolver)
	},
}

func runReviewLoop(ctx context.Context, session *review.Session, resolver *force.Resolver) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          color.New(color.FgCyan).Sprint("review> "),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("create readline: %w", err)
	}
	defer rl.Close()

	printCurrent(session, resolver)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		if parts[0] == "q" || parts[0] == "quit" {
			break
		}

		if err := handleReviewCommand(ctx, session, parts); err != nil {
			fmt.Printf("%s %v\n", color.New(color.FgRed).Sprint("!"), err)
		}
		printCurrent(session, resolver)
	}

	p := session.Progress()
	fmt.Printf("session: %d/%d processed", p.ProcessedCount, p.TotalCount)
	if avg := p.AverageActionTime(); avg > 0 {
		fmt.Printf(", %s per action", avg.Round(time.Second))
	}
	fmt.Println()
	return nil
}

func handleReviewCommand(ctx context.Context, session *review.Session, parts []string) error {
	switch parts[0] {
	case "n", "next":
		session.SelectNext()
	case "p", "prev":
		session.SelectPrevious()
	case "send":
		return session.Send(ctx)
	case "skip":
		return session.Skip(ctx)
	case "won":
		return session.MarkWon(ctx)
	case "lost":
		return session.MarkLost(ctx)
	case "dismiss":
		if len(parts) < 2 {
			return fmt.Errorf("dismiss requires a reason")
		}
		return session.Dismiss(ctx, review.DismissReason(parts[1]))
	case "undo":
		return session.Undo(ctx)
	case "filter":
		if len(parts) < 2 {
			return fmt.Errorf("filter requires ready, sent or all")
		}
		session.SetFilter(review.Filter(parts[1]))
	default:
		return fmt.Errorf("unknown command %q", parts[0])
	}
	return nil
}

func printCurrent(session *review.Session, resolver *force.Resolver) {
	cur := session.Current()
	if cur == nil {
		fmt.Println("queue empty for this filter")
		return
	}

	tier := tierColor(cur.PriorityTier).Sprintf("[%s]", cur.PriorityTier)
	intercept := ""
	if cur.IsCompetitorIntercept {
		intercept = color.New(color.FgRed, color.Bold).Sprint(" COMPETITOR")
	}
	fmt.Printf("%s %s — %s (%.0f) %d signal(s)%s\n",
		tier, resolver.CanonicalName(cur.ForceID), cur.Status,
		cur.PriorityScore, len(cur.SignalIDs), intercept)
}

func tierColor(t model.PriorityTier) *color.Color {
	switch t {
	case model.TierHot:
		return color.New(color.FgRed, color.Bold)
	case model.TierHigh:
		return color.New(color.FgYellow)
	case model.TierMedium:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

// consoleNotifier prints the dismissable undo notice.
type consoleNotifier struct{}

func (consoleNotifier) Notify(n review.Notification) {
	fmt.Printf("%s %s (undo until %s)\n",
		color.New(color.FgGreen).Sprint("✓"), n.Message, n.ExpiresAt.Format("15:04:05"))
}

// consoleComposer stands in for the external composition surface.
type consoleComposer struct {
	resolver *force.Resolver
}

func (c consoleComposer) OpenDraft(o model.Opportunity) error {
	fmt.Printf("opening draft for %s…\n", c.resolver.CanonicalName(o.ForceID))
	return nil
}

func undoWindow() time.Duration {
	return time.Duration(cfg.Review.UndoWindowSeconds) * time.Second
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
