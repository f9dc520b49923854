package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/noah-isme/campus-slot-api/internal/models"
)

func printSlots(out io.Writer, slots []models.Slot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CAMPUS\tSTART\tEND\tSTATUS\tSUSPENDED FROM\tSUSPENDED UNTIL")
	for _, slot := range slots {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			slot.CampusID, slot.StartTime, slot.EndTime, slot.Status,
			dateOrDash(slot.SuspendedFrom), dateOrDash(slot.SuspendedUntil))
	}
	return w.Flush()
}

func dateOrDash(d *models.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
