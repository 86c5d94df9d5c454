package classifier

// Labels is the waste category of each model output index.
var Labels = [...]string{
	"Battery",
	"Biological",
	"Cardboard",
	"Clothes",
	"Glass",
	"Metal",
	"Paper",
	"Plastic",
	"Shoes",
	"Trash",
}

// MatchesLabels reports whether a model's own label table agrees with Labels.
func MatchesLabels(labels []string) bool {
	if len(labels) != len(Labels) {
		return false
	}
	for i, l := range labels {
		if l != Labels[i] {
			return false
		}
	}
	return true
}
