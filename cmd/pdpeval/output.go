package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"vesselpdp/internal/opt"
)

type report struct {
	Instance      string       `json:"instance"`
	InstanceID    string       `json:"instanceId,omitempty"`
	EvaluationID  string       `json:"evaluationId,omitempty"`
	Nodes         int          `json:"nodes"`
	Vehicles      int          `json:"vehicles"`
	Calls         int          `json:"calls"`
	Compatibility [][]int      `json:"compatibility"`
	Solution      opt.Solution `json:"solution"`
	Strategy      string       `json:"strategy,omitempty"`
	Result        opt.Result   `json:"result"`
}

func writeJSON(w io.Writer, rep report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func writeText(w io.Writer, rep report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Instance:\t%s\n", rep.Instance)
	fmt.Fprintf(tw, "Nodes:\t%d\n", rep.Nodes)
	fmt.Fprintf(tw, "Vehicles:\t%d\n", rep.Vehicles)
	fmt.Fprintf(tw, "Calls:\t%d\n", rep.Calls)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nVessel/cargo compatibility:")
	tw = tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "vehicle\t")
	for c := 1; c <= rep.Calls; c++ {
		fmt.Fprintf(tw, "%d\t", c)
	}
	fmt.Fprintln(tw)
	for v, row := range rep.Compatibility {
		fmt.Fprintf(tw, "%d\t", v+1)
		for _, ok := range row {
			fmt.Fprintf(tw, "%d\t", ok)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	sol := rep.Solution.String()
	if rep.Strategy != "" {
		sol += " (seed: " + rep.Strategy + ")"
	}
	fmt.Fprintf(tw, "Solution:\t%s\n", sol)
	fmt.Fprintf(tw, "Feasible:\t%t (penalty %s): %s\n", rep.Result.Feasible, num(rep.Result.Penalty), rep.Result.Reason)
	fmt.Fprintf(tw, "Cost:\t%s\n", num(rep.Result.Cost))
	if rep.EvaluationID != "" {
		fmt.Fprintf(tw, "Stored:\tinstance %s, evaluation %s\n", rep.InstanceID, rep.EvaluationID)
	}
	return tw.Flush()
}
