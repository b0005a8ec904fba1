package main

import (
	"fmt"
	"io"

	"github.com/weiihann/fkbench/harness"
	"github.com/weiihann/fkbench/report"
)

func printResults(w io.Writer, results *harness.Results, asJSON bool) error {
	if asJSON {
		if err := report.GenerateJSON(w, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(w, results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}
