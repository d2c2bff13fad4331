package admission

// diceSimilarity calcula el coeficiente de Dice sobre bigramas de runas.
// 1.0 es idéntico, 0.0 sin bigramas en común. Los bigramas se cuentan como
// multiconjunto para que las repeticiones pesen.
func diceSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		if a == b {
			return 1
		}
		return 0
	}

	counts := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[string(ra[i:i+2])]++
	}

	overlap := 0
	for i := 0; i < len(rb)-1; i++ {
		key := string(rb[i : i+2])
		if counts[key] > 0 {
			counts[key]--
			overlap++
		}
	}

	total := (len(ra) - 1) + (len(rb) - 1)
	return 2 * float64(overlap) / float64(total)
}
