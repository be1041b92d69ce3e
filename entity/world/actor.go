package world

import (
	"github.com/tsinghua-fib-lab/navstack/entity"
	"gonum.org/v1/gonum/spatial/r3"
)

// actor 参与者的公共字段
type actor struct {
	id        int32
	kind      entity.ActorKind
	transform entity.Transform
	bbox      entity.BoundingBox
	velocity  r3.Vec
}

func (a *actor) ID() int32                       { return a.id }
func (a *actor) Kind() entity.ActorKind          { return a.kind }
func (a *actor) Transform() entity.Transform     { return a.transform }
func (a *actor) BoundingBox() entity.BoundingBox { return a.bbox }
func (a *actor) Velocity() r3.Vec                { return a.velocity }

// SetTransform 直接设置位姿（用于测试与场景摆放）
func (a *actor) SetTransform(t entity.Transform) {
	a.transform = t
}

// Walker 沿朝向匀速移动的行人
type Walker struct {
	actor
	speed float64 // m/s
}

var _ entity.IActor = (*Walker)(nil)

// NewWalker 创建行人
func NewWalker(id int32, transform entity.Transform, speed float64) *Walker {
	w := &Walker{
		actor: actor{
			id:        id,
			kind:      entity.ActorWalker,
			transform: transform,
			bbox:      entity.BoundingBox{Extent: r3.Vec{X: 0.3, Y: 0.3, Z: 0.9}},
		},
		speed: speed,
	}
	w.velocity = r3.Scale(speed, transform.ForwardVector())
	return w
}

func (w *Walker) update(dt float64) {
	if w.speed == 0 {
		return
	}
	w.transform.Location = r3.Add(w.transform.Location, r3.Scale(dt, w.velocity))
}
