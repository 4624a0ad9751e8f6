package domain

// Crossover derives a child genome from two parents and an auxiliary random
// byte sequence. Position i takes the mare's byte when rnd[i] is even and
// the sire's byte otherwise, so every child byte is exactly one parent's
// byte at that position. The sire's genome is the template: positions past
// the end of the mare or random sequence keep the sire's byte.
func Crossover(sire, mare, rnd Genome) Genome {
	child := sire.Clone()
	n := len(child)
	if len(mare) < n {
		n = len(mare)
	}
	if len(rnd) < n {
		n = len(rnd)
	}
	for i := 0; i < n; i++ {
		if rnd[i]%2 == 0 {
			child[i] = mare[i]
		}
	}
	return child
}

// Duel compares two genomes byte by byte over their common prefix, scoring
// +1 when the left byte is greater than or equal to the right byte and -1
// otherwise. A non-negative total means the left contender wins; ties
// therefore favor the left contender.
func Duel(left, right Genome) int {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	outcome := 0
	for i := 0; i < n; i++ {
		if left[i] >= right[i] {
			outcome++
		} else {
			outcome--
		}
	}
	return outcome
}
