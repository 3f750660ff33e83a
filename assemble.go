package shoptl

// Assemble merges outcomes into a copy of rows. Outcome i belongs to row i;
// rows without a successful outcome keep an empty translation.
func Assemble(rows []Row, outcomes []Outcome) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		row.Translated = ""
		row.HasTranslation = false
		if i < len(outcomes) && outcomes[i].Done {
			row.Translated = outcomes[i].Text
			row.HasTranslation = true
		}
		out[i] = row
	}
	return out
}
