package facedet

import (
	"image"
	"sort"

	"github.com/esimov/facedet/utils"
)

// groupEps is the relative corner tolerance for two hits to join the same cluster.
const groupEps = 0.2

// groupRectangles clusters similar raw hits, averages every cluster and keeps
// only the clusters with more than minNeighbors members. Small clusters nested
// inside a stronger one are dropped as well. The output is sorted top to bottom,
// left to right so that identical input always yields identical output.
func groupRectangles(rects []image.Rectangle, minNeighbors int, eps float64) []image.Rectangle {
	if minNeighbors <= 0 || len(rects) == 0 {
		out := append([]image.Rectangle(nil), rects...)
		sortRects(out)
		return out
	}

	labels, nclasses := partition(rects, eps)

	type cluster struct {
		sum   [4]int
		count int
	}
	clusters := make([]cluster, nclasses)
	for i, r := range rects {
		c := &clusters[labels[i]]
		c.sum[0] += r.Min.X
		c.sum[1] += r.Min.Y
		c.sum[2] += r.Max.X
		c.sum[3] += r.Max.Y
		c.count++
	}

	type candidate struct {
		rect  image.Rectangle
		count int
	}
	candidates := make([]candidate, 0, nclasses)
	for _, c := range clusters {
		if c.count <= minNeighbors {
			continue
		}
		n := c.count
		candidates = append(candidates, candidate{
			rect:  image.Rect((c.sum[0]+n/2)/n, (c.sum[1]+n/2)/n, (c.sum[2]+n/2)/n, (c.sum[3]+n/2)/n),
			count: n,
		})
	}

	out := make([]image.Rectangle, 0, len(candidates))
	for i, a := range candidates {
		nested := false
		for j, b := range candidates {
			if i == j || b.count <= utils.Max(3, a.count) {
				continue
			}
			dx := int(float64(b.rect.Dx()) * eps)
			dy := int(float64(b.rect.Dy()) * eps)
			if a.rect.Min.X >= b.rect.Min.X-dx &&
				a.rect.Min.Y >= b.rect.Min.Y-dy &&
				a.rect.Max.X <= b.rect.Max.X+dx &&
				a.rect.Max.Y <= b.rect.Max.Y+dy {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, a.rect)
		}
	}
	sortRects(out)
	return out
}

// partition assigns every rectangle a cluster label using a union-find over the similarity predicate.
func partition(rects []image.Rectangle, eps float64) ([]int, int) {
	parent := make([]int, len(rects))
	for i := range parent {
		parent[i] = i
	}

	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if similar(rects[i], rects[j], eps) {
				if ri, rj := find(i), find(j); ri != rj {
					parent[rj] = ri
				}
			}
		}
	}

	labels := make([]int, len(rects))
	ids := make(map[int]int)
	for i := range rects {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels, len(ids)
}

// similar reports whether every corner of a and b lies within the tolerance window.
func similar(a, b image.Rectangle, eps float64) bool {
	delta := eps * float64(utils.Min(a.Dx(), b.Dx())+utils.Min(a.Dy(), b.Dy())) * 0.5
	return float64(utils.Abs(a.Min.X-b.Min.X)) <= delta &&
		float64(utils.Abs(a.Min.Y-b.Min.Y)) <= delta &&
		float64(utils.Abs(a.Max.X-b.Max.X)) <= delta &&
		float64(utils.Abs(a.Max.Y-b.Max.Y)) <= delta
}

func sortRects(rects []image.Rectangle) {
	sort.Slice(rects, func(i, j int) bool {
		a, b := rects[i], rects[j]
		if a.Min.Y != b.Min.Y {
			return a.Min.Y < b.Min.Y
		}
		if a.Min.X != b.Min.X {
			return a.Min.X < b.Min.X
		}
		if a.Max.Y != b.Max.Y {
			return a.Max.Y < b.Max.Y
		}
		return a.Max.X < b.Max.X
	})
}
