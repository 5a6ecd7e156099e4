package utils

// PartitionMap splits the index range [0, MaxIndex) into ParallelDegree
// contiguous buckets whose sizes differ by at most one, with the remainder
// spread over the lowest buckets
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of each bucket
}

// NewPartitionMap treats a negative maxIndex as an empty range
func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if maxIndex < 0 {
		maxIndex = 0
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	var (
		size      = maxIndex / ParallelDegree
		remainder = maxIndex % ParallelDegree
		begin     int
	)
	for n := range pm.Partitions {
		end := begin + size
		if n < remainder {
			end++
		}
		pm.Partitions[n] = [2]int{begin, end}
		begin = end
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

// GetBucketDimension is the number of indices held by bucket bn
func (pm *PartitionMap) GetBucketDimension(bn int) int {
	kMin, kMax := pm.GetBucketRange(bn)
	return kMax - kMin
}
