package consolidation

import (
	"sort"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/limiquantix/placesim/internal/domain"
)

// Threshold returns the pairwise traffic value at the given percentile among
// the VMs. The index into the ascending values is floor(m*p), clamped to the
// last pair. With fewer than two VMs there are no pairs and the threshold is 0.
func Threshold(vms []domain.VM, traffic *domain.TrafficMatrix, percentile float64) float64 {
	n := len(vms)
	if n < 2 {
		return 0
	}

	edges := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, traffic.At(vms[i].ID, vms[j].ID))
		}
	}
	sort.Float64s(edges)

	idx := int(float64(len(edges)) * percentile)
	if idx >= len(edges) {
		idx = len(edges) - 1
	}
	return edges[idx]
}

// Partition splits the VMs into at most k clusters. VMs whose pairwise
// traffic reaches the percentile threshold are linked; connected components
// are found breadth first in input order. While more than k clusters remain,
// the two smallest are merged and the merged cluster goes last.
func Partition(vms []domain.VM, traffic *domain.TrafficMatrix, percentile float64, k int) [][]domain.VM {
	threshold := Threshold(vms, traffic, percentile)

	n := len(vms)
	visited := make([]bool, n)
	var clusters [][]domain.VM

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		queue := linkedlistqueue.New()
		queue.Enqueue(i)

		var cluster []domain.VM
		for !queue.Empty() {
			head, _ := queue.Dequeue()
			x := head.(int)
			cluster = append(cluster, vms[x])

			for y := 0; y < n; y++ {
				if visited[y] || traffic.At(vms[x].ID, vms[y].ID) < threshold {
					continue
				}
				visited[y] = true
				queue.Enqueue(y)
			}
		}
		clusters = append(clusters, cluster)
	}

	for len(clusters) > k {
		sort.SliceStable(clusters, func(i, j int) bool {
			return len(clusters[i]) < len(clusters[j])
		})
		merged := make([]domain.VM, 0, len(clusters[0])+len(clusters[1]))
		merged = append(merged, clusters[0]...)
		merged = append(merged, clusters[1]...)
		clusters = append(clusters[2:], merged)
	}

	return clusters
}
