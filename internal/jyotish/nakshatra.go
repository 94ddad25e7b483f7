package jyotish

import "fmt"

// SegmentSpan 单个星区的黄经跨度（360/27 度）。
const SegmentSpan = 360.0 / 27.0

// Segment 黄道 27 星区之一，区间为左闭右开 [Start, End)。
type Segment struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Ruler Graha   `json:"ruler"`
	Start float64 `json:"start_deg"`
	End   float64 `json:"end_deg"`
}

var segmentNames = [...]string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashira", "Ardra",
	"Punarvasu", "Pushya", "Ashlesha", "Magha", "Purva Phalguni",
	"Uttara Phalguni", "Hasta", "Chitra", "Swati", "Vishakha", "Anuradha",
	"Jyeshtha", "Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana",
	"Dhanishta", "Shatabhisha", "Purva Bhadrapada", "Uttara Bhadrapada",
	"Revati",
}

var segments [len(segmentNames)]Segment

func init() {
	// 主星按 Vimshottari 顺序循环三轮铺满 27 区，边界由序号推出。
	for i := range segments {
		segments[i] = Segment{
			Index: i,
			Name:  segmentNames[i],
			Ruler: dashaOrder[i%len(dashaOrder)],
			Start: float64(i) * SegmentSpan,
			End:   float64(i+1) * SegmentSpan,
		}
	}
}

// Segments 返回全部星区的副本，顺序即黄经顺序。
func Segments() []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments[:])
	return out
}

// ResolveSegment 定位黄经所在星区并给出区内进度 [0,1)。
// 入参须已归一化；恰为 360 时回落到首区，超出 [0,360] 视为调用方错误。
func ResolveSegment(longitude float64) (Segment, float64, error) {
	if longitude < 0 || longitude > 360 {
		return Segment{}, 0, fmt.Errorf("longitude %.6f outside [0,360]", longitude)
	}
	if longitude == 360 {
		return segments[0], 0, nil
	}
	idx := int(longitude / SegmentSpan)
	if idx > len(segments)-1 {
		idx = len(segments) - 1
	}
	// 浮点除法可能把边界值落错一格，按表内边界修正。
	for idx > 0 && longitude < segments[idx].Start {
		idx--
	}
	for idx < len(segments)-1 && longitude >= segments[idx].End {
		idx++
	}
	seg := segments[idx]
	progress := (longitude - seg.Start) / (seg.End - seg.Start)
	return seg, progress, nil
}
