package evaluation

// Ratio returns part/whole, or 0 when whole is zero.
func Ratio(part, whole int) float64 {
	if whole == 0 {
		return 0.0
	}
	return float64(part) / float64(whole)
}

// Precision is the fraction of orders routed to a queue that belonged there.
func Precision(correct, routed int) float64 {
	return Ratio(correct, routed)
}

// Recall is the fraction of orders belonging to a queue that were routed there.
func Recall(correct, expected int) float64 {
	return Ratio(correct, expected)
}

// F1 is the harmonic mean of precision and recall.
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0.0
	}
	return 2 * precision * recall / (precision + recall)
}
