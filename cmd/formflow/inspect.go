package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/petrijr/formflow/internal/definition"
	"github.com/petrijr/formflow/internal/files"
	"github.com/petrijr/formflow/internal/logging"
	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/internal/wizard"
	"github.com/petrijr/formflow/pkg/api"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	invalidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	stepNameStyle = lipgloss.NewStyle().Width(24)
)

func newInspectCommand() *cobra.Command {
	var answers []string

	cmd := &cobra.Command{
		Use:   "inspect <definition.yaml>",
		Short: "Show the steps of a wizard definition",
		Long: `Compile a wizard definition and print its step catalog.

Answers given with --answer are stored as submitted data before the
conditions are evaluated, so the output shows which steps a user with those
answers would see:

  formflow inspect signup.yaml --answer 0.age=3 --answer "step2|1.name=hurray"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], answers)
		},
	}

	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "simulated answer as step.field=value (repeatable)")
	return cmd
}

// parseAnswers groups step.field=value pairs by step. The field is taken
// after the last dot so step keys may contain dots.
func parseAnswers(raw []string) (map[string]api.Values, error) {
	out := make(map[string]api.Values)
	for _, a := range raw {
		key, value, ok := strings.Cut(a, "=")
		dot := strings.LastIndex(key, ".")
		if !ok || dot <= 0 || dot == len(key)-1 {
			return nil, fmt.Errorf("invalid answer %q: want step.field=value", a)
		}
		step, field := key[:dot], key[dot+1:]
		if out[step] == nil {
			out[step] = url.Values{}
		}
		out[step].Add(field, value)
	}
	return out, nil
}

func runInspect(ctx context.Context, out io.Writer, path string, rawAnswers []string) error {
	answers, err := parseAnswers(rawAnswers)
	if err != nil {
		return err
	}

	def, err := definition.LoadFile(path)
	if err != nil {
		return err
	}
	wcfg, err := def.Config()
	if err != nil {
		return err
	}
	wcfg.FileStorage = files.NewMemory()
	wcfg.Logger = logging.Discard()

	wiz, err := wizard.New(wcfg)
	if err != nil {
		return err
	}
	cat, err := wiz.Catalog(ctx)
	if err != nil {
		return err
	}

	store := persistence.NewMemoryBackend().Storage("inspect")
	for step, values := range answers {
		if !cat.Contains(step) {
			return fmt.Errorf("answer for unknown step %q", step)
		}
		if err := store.SetStepData(ctx, step, values); err != nil {
			return err
		}
	}

	sess, err := wiz.Open(ctx, store)
	if err != nil {
		return err
	}
	active := make(map[string]bool)
	for _, k := range sess.ActiveSteps() {
		active[k] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render("Wizard: "+wiz.Name()))
	fmt.Fprintf(&b, "%s\n\n", detailStyle.Render(fmt.Sprintf("%d steps, %d active", cat.Len(), len(active))))

	for _, key := range cat.Keys() {
		group, _ := cat.Group(key)

		marker, status := "✓", activeStyle.Render("active")
		if !active[key] {
			marker, status = "○", skippedStyle.Render("skipped")
		}
		if _, answered := answers[key]; answered && active[key] {
			if len(sess.CleanedDataForStep(key)) > 0 {
				status += " " + activeStyle.Render("valid")
			} else {
				status += " " + invalidStyle.Render("invalid")
			}
		}

		fmt.Fprintf(&b, "  %s %s %s  %s\n",
			marker,
			stepNameStyle.Render(key),
			status,
			detailStyle.Render(describeGroup(group)))
	}

	_, err = io.WriteString(out, b.String())
	return err
}

func describeGroup(g api.FormGroup) string {
	if g.Kind() == api.GroupSingle {
		return g.Form().Name()
	}
	parts := make([]string, 0, len(g.Tags()))
	for _, e := range g.Entries() {
		parts = append(parts, e.Tag+"="+e.Form.Name())
	}
	return strings.Join(parts, ", ")
}
