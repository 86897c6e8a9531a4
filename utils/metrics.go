package utils

import "gonum.org/v1/gonum/floats"

// ClassReport holds one-vs-rest metrics for a single class.
type ClassReport struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

func Accuracy(gold, pred []int) float64 {
	if len(gold) == 0 {
		return 0
	}
	correct := 0
	for i := range gold {
		if gold[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(gold))
}

// ClassificationReport computes per-class precision/recall/F1 plus macro
// averages over nClasses. Undefined ratios (zero denominators) degrade to 0,
// matching the report the original pipeline printed.
func ClassificationReport(gold, pred []int, nClasses int) ([]ClassReport, ClassReport) {
	if len(gold) != len(pred) {
		panic("ClassificationReport: gold/pred length mismatch")
	}
	tp := make([]int, nClasses)
	fp := make([]int, nClasses)
	fn := make([]int, nClasses)
	support := make([]int, nClasses)
	for i := range gold {
		g, p := gold[i], pred[i]
		support[g]++
		if g == p {
			tp[g]++
		} else {
			fp[p]++
			fn[g]++
		}
	}

	reports := make([]ClassReport, nClasses)
	precs := make([]float64, nClasses)
	recs := make([]float64, nClasses)
	f1s := make([]float64, nClasses)
	for c := 0; c < nClasses; c++ {
		var prec, rec, f1 float64
		if tp[c]+fp[c] > 0 {
			prec = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			rec = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		if prec+rec > 0 {
			f1 = 2 * prec * rec / (prec + rec)
		}
		reports[c] = ClassReport{Precision: prec, Recall: rec, F1: f1, Support: support[c]}
		precs[c], recs[c], f1s[c] = prec, rec, f1
	}

	n := float64(nClasses)
	macro := ClassReport{
		Precision: floats.Sum(precs) / n,
		Recall:    floats.Sum(recs) / n,
		F1:        floats.Sum(f1s) / n,
		Support:   len(gold),
	}
	return reports, macro
}
