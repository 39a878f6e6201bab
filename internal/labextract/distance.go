package labextract

// Distance returns the Levenshtein edit distance between a and b: the
// minimum number of single-rune insertions, deletions or substitutions
// needed to turn one into the other. Callers normalise case.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)

	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
		table[i][0] = i
	}
	for j := 0; j <= n; j++ {
		table[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if ra[i-1] == rb[j-1] {
				table[i][j] = table[i-1][j-1]
				continue
			}
			table[i][j] = 1 + min(table[i-1][j], table[i][j-1], table[i-1][j-1])
		}
	}
	return table[m][n]
}
