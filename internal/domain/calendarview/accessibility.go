package calendarview

// PatchAccessibility corrects the day cells emitted by the widget:
// a reference to a missing label node is dropped; cells without events are
// taken out of the tab order and lose their navigation data; cells with
// events get a direct aria-label instead of the indirect reference.
func PatchAccessibility(cells []DayCell) []DayCell {
	out := make([]DayCell, len(cells))
	for i, cell := range cells {
		switch {
		case cell.LabelledBy != "" && !cell.LabelExists:
			cell.LabelledBy = ""
		case !cell.HasEvents:
			cell.TabIndex = -1
			cell.NavData = ""
		default:
			cell.LabelledBy = ""
			cell.AriaLabel = "Go to " + cell.Title
		}
		out[i] = cell
	}
	return out
}
