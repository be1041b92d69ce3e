// 平面凸多边形相交检测（分离轴定理），只使用顶点的X、Y分量
package polygon

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

// Polygon 平面凸多边形，顶点按环绕顺序排列
type Polygon []r3.Vec

// ConvexHull 求点集的凸包（Andrew单调链），结果按逆时针（数学坐标系）排列
// 说明：少于3个点或全部共线时返回退化多边形（线段或点）
func ConvexHull(points []r3.Vec) Polygon {
	pts := make([]r3.Vec, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return Polygon(pts)
	}
	hull := make([]r3.Vec, 0, 2*len(pts))
	// 下凸壳
	for _, p := range pts {
		for len(hull) >= 2 && cross2(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// 上凸壳
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross2(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return Polygon(hull[:len(hull)-1])
}

// Intersects 两个凸多边形是否相交（接触也算相交）
// 算法说明：
// 1. 取两个多边形所有边的法向量作为候选分离轴
// 2. 将两个多边形分别投影到轴上，若存在投影区间不重叠的轴则不相交
// 3. 退化多边形（点、线段）额外使用自身方向作为分离轴
func (p Polygon) Intersects(q Polygon) bool {
	if len(p) == 0 || len(q) == 0 {
		return false
	}
	for _, axis := range append(p.axes(), q.axes()...) {
		pMin, pMax := p.project(axis)
		qMin, qMax := q.project(axis)
		if pMax < qMin-eps || qMax < pMin-eps {
			return false
		}
	}
	return true
}

// axes 候选分离轴（各边法向量）
func (p Polygon) axes() []r3.Vec {
	res := make([]r3.Vec, 0, len(p)+1)
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		dx, dy := b.X-a.X, b.Y-a.Y
		if dx*dx+dy*dy < eps*eps {
			continue
		}
		res = append(res, r3.Vec{X: -dy, Y: dx})
		if len(p) == 2 {
			// 线段还需要检查自身方向
			res = append(res, r3.Vec{X: dx, Y: dy})
			break
		}
	}
	if len(res) == 0 {
		// 点：用坐标轴即可
		res = append(res, r3.Vec{X: 1}, r3.Vec{Y: 1})
	}
	return res
}

func (p Polygon) project(axis r3.Vec) (lo, hi float64) {
	lo = p[0].X*axis.X + p[0].Y*axis.Y
	hi = lo
	for _, v := range p[1:] {
		d := v.X*axis.X + v.Y*axis.Y
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return
}

// Corridor 由若干凸多边形拼成的带状区域（可以弯曲）
type Corridor []Polygon

// NewCorridor 由一串横截面构造走廊
// 参数：left、right-各横截面的左右端点，长度必须相同
// 说明：相邻两个横截面围成一个四边形，取凸包保证凸性；横截面少于2个时返回空走廊
func NewCorridor(left, right []r3.Vec) Corridor {
	if len(left) != len(right) || len(left) < 2 {
		return nil
	}
	res := make(Corridor, 0, len(left)-1)
	for i := 0; i+1 < len(left); i++ {
		res = append(res, ConvexHull([]r3.Vec{left[i], right[i], right[i+1], left[i+1]}))
	}
	return res
}

// Intersects 走廊是否与凸多边形相交
func (c Corridor) Intersects(q Polygon) bool {
	for _, p := range c {
		if p.Intersects(q) {
			return true
		}
	}
	return false
}

// cross2 向量ab与ac叉积的z分量
func cross2(a, b, c r3.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
