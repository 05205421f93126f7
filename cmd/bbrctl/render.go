package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"bbrctl/internal/app"
)

func printResult(w io.Writer, res app.Result) {
	fmt.Fprintf(w, "%s: %s\n", res.Operation, res.Outcome)
	if res.Kernel.Full != "" {
		fmt.Fprintf(w, "  kernel: %s (%s)\n", res.Kernel.Full, res.Tier)
	}
	if res.Block != "" {
		fmt.Fprintf(w, "  block:  %s\n", res.Block)
	}
	if res.Detail != "" {
		fmt.Fprintf(w, "  detail: %s\n", res.Detail)
	}
}

func printRestore(w io.Writer, res app.RestoreResult) {
	for _, f := range res.Files {
		fmt.Fprintf(w, "restore %s: %s\n", f.Path, f.Outcome)
	}
}

func printStatus(w io.Writer, st app.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "kernel\t%s\n", st.Kernel.Full)
	fmt.Fprintf(tw, "feature tier\t%s\n", st.Tier)
	fmt.Fprintf(tw, "%s module\t%s\n", st.Algorithm, st.Evidence)
	fmt.Fprintf(tw, "fully supported\t%s\n", yesNo(st.FullySupported))
	fmt.Fprintf(tw, "congestion control\t%s\n", parameterValue(st.CongestionControl))
	fmt.Fprintf(tw, "default qdisc\t%s\n", parameterValue(st.DefaultQdisc))
	fmt.Fprintf(tw, "available\t%s\n", strings.Join(st.Available, " "))
	if st.InterfaceQdiscErr != "" {
		fmt.Fprintf(tw, "interface qdisc\tunknown (%s)\n", st.InterfaceQdiscErr)
	} else {
		fmt.Fprintf(tw, "interface qdisc\t%s on %s\n", st.InterfaceQdisc.Kind, st.InterfaceQdisc.Interface)
	}
	fmt.Fprintf(tw, "configured\t%s\n", yesNo(st.Configured))
	fmt.Fprintf(tw, "active\t%s\n", yesNo(st.Active))
	for _, l := range st.ProcessLimits {
		fmt.Fprintf(tw, "limit %s\tsoft %s, hard %s\n", l.Name, l.Soft, l.Hard)
	}

	return tw.Flush()
}

func printView(w io.Writer, view app.ConfigView) {
	for _, f := range []app.FileView{view.Network, view.Limits} {
		backup := "no backup"
		if f.BackupExists {
			backup = "backup " + f.BackupPath
		}
		fmt.Fprintf(w, "%s (%s)\n", f.Path, backup)
		switch {
		case f.Err != "":
			fmt.Fprintf(w, "  error: %s\n", f.Err)
		case len(f.Lines) == 0:
			fmt.Fprintln(w, "  no managed lines")
		default:
			for _, line := range f.Lines {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "%s: %s\n", view.AutoloadPath, presentAbsent(view.AutoloadPresent))
}

func parameterValue(p app.Parameter) string {
	if !p.Set {
		return "not set"
	}
	return p.Value
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func presentAbsent(b bool) string {
	if b {
		return "present"
	}
	return "absent"
}
