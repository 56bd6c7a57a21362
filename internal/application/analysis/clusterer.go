package analysis

import (
	"sort"
)

// EntityInfo 聚类结果，代表一个现实实体
type EntityInfo struct {
	// CanonicalForm 规范形式：出现次数最高的变体，
	// 平局时取最短者，再平局取字典序最小者
	CanonicalForm string      `json:"canonical_form"`
	Variations    []string    `json:"variations"`
	Frequency     int         `json:"frequency"`
	Label         EntityLabel `json:"-"`
}

// Clusterer 变体聚类器
type Clusterer struct {
	threshold float64
}

// NewClusterer 创建聚类器，threshold 为归一化相似度阈值 (0-1]
func NewClusterer(threshold float64) *Clusterer {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.82
	}
	return &Clusterer{threshold: threshold}
}

// unionFind 索引并查集
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// 根取较小索引，保证合并顺序稳定
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// Cluster 将实体出现序列聚成等价类
// 合并按归一化形式排序后进行，相同输入总是得到相同划分
func (c *Clusterer) Cluster(occurrences []EntityOccurrence) []EntityInfo {
	if len(occurrences) == 0 {
		return nil
	}

	// 先按归一化形式汇总出现次数与原始变体
	type formStats struct {
		count int
		raws  map[string]int
		label EntityLabel
	}
	stats := make(map[string]*formStats)
	for _, occ := range occurrences {
		s, ok := stats[occ.Normalized]
		if !ok {
			s = &formStats{raws: make(map[string]int), label: occ.Label}
			stats[occ.Normalized] = s
		}
		s.count++
		s.raws[occ.Raw]++
	}

	forms := make([]string, 0, len(stats))
	for f := range stats {
		forms = append(forms, f)
	}
	sort.Strings(forms)

	// 相似度达到阈值的归一化形式两两合并，并查集保证传递闭包
	uf := newUnionFind(len(forms))
	for i := 0; i < len(forms); i++ {
		for j := i + 1; j < len(forms); j++ {
			if Similarity(forms[i], forms[j]) >= c.threshold {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range forms {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	clusters := make([]EntityInfo, 0, len(roots))
	for _, root := range roots {
		members := groups[root]

		rawCounts := make(map[string]int)
		frequency := 0
		label := stats[forms[members[0]]].label
		for _, idx := range members {
			s := stats[forms[idx]]
			frequency += s.count
			for raw, n := range s.raws {
				rawCounts[raw] += n
			}
		}

		variations := make([]string, 0, len(rawCounts))
		for raw := range rawCounts {
			variations = append(variations, raw)
		}
		sort.Strings(variations)

		clusters = append(clusters, EntityInfo{
			CanonicalForm: pickCanonical(rawCounts),
			Variations:    variations,
			Frequency:     frequency,
			Label:         label,
		})
	}

	return clusters
}

// pickCanonical 按出现次数、长度、字典序选出规范形式
func pickCanonical(rawCounts map[string]int) string {
	var canonical string
	var bestCount int
	for raw, count := range rawCounts {
		if canonical == "" {
			canonical, bestCount = raw, count
			continue
		}
		switch {
		case count > bestCount:
			canonical, bestCount = raw, count
		case count == bestCount && len(raw) < len(canonical):
			canonical = raw
		case count == bestCount && len(raw) == len(canonical) && raw < canonical:
			canonical = raw
		}
	}
	return canonical
}
