package emitter

// Population bands and batch sizes used by DefaultBatchPolicy.
const (
	DefaultSmallPopulation  = 10_000
	DefaultMediumPopulation = 100_000
	DefaultSmallBatch       = 500
	DefaultMediumBatch      = 1000
	DefaultLargeBatch       = 5000
)

// BatchPolicy maps a population size to a batch size.
type BatchPolicy struct {
	// SmallPopulation is the exclusive upper bound of the small band.
	SmallPopulation int
	// MediumPopulation is the exclusive upper bound of the medium band.
	MediumPopulation int

	SmallBatch  int
	MediumBatch int
	LargeBatch  int
}

// DefaultBatchPolicy returns the 10k/100k bands with 500/1000/5000 batches.
func DefaultBatchPolicy() BatchPolicy {
	return BatchPolicy{
		SmallPopulation:  DefaultSmallPopulation,
		MediumPopulation: DefaultMediumPopulation,
		SmallBatch:       DefaultSmallBatch,
		MediumBatch:      DefaultMediumBatch,
		LargeBatch:       DefaultLargeBatch,
	}
}

// BatchSize returns the batch size for a population.
func (p BatchPolicy) BatchSize(population int) int {
	switch {
	case population < p.SmallPopulation:
		return p.SmallBatch
	case population < p.MediumPopulation:
		return p.MediumBatch
	default:
		return p.LargeBatch
	}
}

// Partition splits names into consecutive disjoint batches of at most size.
func Partition(names []string, size int) [][]string {
	if size < 1 {
		size = 1
	}

	batches := make([][]string, 0, (len(names)+size-1)/size)
	for start := 0; start < len(names); start += size {
		end := min(start+size, len(names))
		batches = append(batches, names[start:end])
	}

	return batches
}

// Chunk groups batches into chunks of at most maxWorkers batches.
func Chunk(batches [][]string, maxWorkers int) [][][]string {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	chunks := make([][][]string, 0, (len(batches)+maxWorkers-1)/maxWorkers)
	for start := 0; start < len(batches); start += maxWorkers {
		end := min(start+maxWorkers, len(batches))
		chunks = append(chunks, batches[start:end])
	}

	return chunks
}
