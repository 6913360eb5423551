package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run one navigation locally and print the result",
	Long: `Loads the configured rules and pages, runs a single navigation and prints
the outcome as JSON. Without --page the navigation recovers from --path.
Redirects are printed, not performed.`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("page", "", "current page id")
	resolveCmd.Flags().String("action", "", "action reference")
	resolveCmd.Flags().String("outcome", "", "outcome")
	resolveCmd.Flags().String("path", "", "transport path, used when recovering")
	resolveCmd.Flags().Bool("partial", false, "treat the request as a partial request")
	resolveCmd.Flags().String("vars", "{}", "expression variables as a JSON object")
}

// printTransport records redirects for printing.
type printTransport struct {
	path     string
	partial  bool
	location string
	params   types.Params
}

func (t *printTransport) IssueRedirect(_ context.Context, url string, params types.Params) error {
	t.location = url
	t.params = params
	return nil
}

func (t *printTransport) IsPartialRequest() bool       { return t.partial }
func (t *printTransport) CurrentTransportPath() string { return t.path }

type resolveOutput struct {
	Kind      string              `json:"kind"`
	States    []string            `json:"states"`
	From      string              `json:"from"`
	To        string              `json:"to"`
	Flow      string              `json:"flow,omitempty"`
	RuleKey   string              `json:"rule_key,omitempty"`
	Redirect  string              `json:"redirect,omitempty"`
	Params    map[string][]string `json:"params,omitempty"`
	Implicit  bool                `json:"implicit"`
	Recovered bool                `json:"recovered"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	pageID, _ := cmd.Flags().GetString("page")
	action, _ := cmd.Flags().GetString("action")
	outcome, _ := cmd.Flags().GetString("outcome")
	path, _ := cmd.Flags().GetString("path")
	partial, _ := cmd.Flags().GetBool("partial")
	rawVars, _ := cmd.Flags().GetString("vars")

	var vars map[string]any
	if err := json.Unmarshal([]byte(rawVars), &vars); err != nil {
		return fmt.Errorf("invalid --vars: %w", err)
	}

	st, err := buildStack(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer st.Close()

	var current navigation.PageHandle
	if pageID != "" {
		current, err = st.registry.CreateOrRestore(ctx, pageID)
		if err != nil {
			return err
		}
	}

	tr := &printTransport{path: path, partial: partial}
	x := navigation.NewExchange(tr, st.compiler.Scope(vars), current)
	res, err := st.navigator.Navigate(ctx, x, navigation.Request{ActionRef: action, Outcome: outcome})
	if err != nil {
		return err
	}

	out := resolveOutput{
		Kind:      res.Kind.String(),
		From:      res.From,
		To:        res.Target.PageID,
		Flow:      res.FlowReference,
		Redirect:  tr.location,
		Implicit:  res.Implicit,
		Recovered: res.Recovered,
	}
	for _, s := range res.States {
		out.States = append(out.States, s.String())
	}
	if res.Case != nil {
		out.RuleKey = res.Case.RuleKey
	}
	if len(tr.params) > 0 {
		out.Params = make(map[string][]string, len(tr.params))
		for _, p := range tr.params {
			out.Params[p.Name] = p.Values
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
