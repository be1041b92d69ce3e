package route_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/navstack/entity"
	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"github.com/tsinghua-fib-lab/navstack/navigation/misc"
	"github.com/tsinghua-fib-lab/navstack/navigation/route"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/spatial/r3"
)

const resolution = 2.0

func newPlanner(t *testing.T, data world.MapData) *route.GlobalPlanner {
	t.Helper()
	m, err := world.NewMap(data)
	require.NoError(t, err)
	return route.NewGlobalPlanner(m, resolution)
}

// options 合并连续相同的驾驶动作
func options(trace []entity.RoutePoint) []entity.RoadOption {
	var res []entity.RoadOption
	for _, rp := range trace {
		if len(res) == 0 || res[len(res)-1] != rp.Option {
			res = append(res, rp.Option)
		}
	}
	return res
}

func TestSamplingDensity(t *testing.T) {
	for name, data := range map[string]world.MapData{
		"straight": world.StraightRoad(101),
		"junction": world.FourWayJunction(),
		"two lane": world.TwoLaneRoad(60),
	} {
		p := newPlanner(t, data)
		for _, e := range p.Edges() {
			if e.Type != entity.RoadOptionLaneFollow {
				assert.Zero(t, e.Length, name)
				assert.Empty(t, e.Path, name)
				continue
			}
			assert.Equal(t, len(e.Path)+1, e.Length, name)
			walk := append([]entity.IWaypoint{e.Entry}, e.Path...)
			for i := 1; i < len(walk); i++ {
				d := misc.Distance(walk[i-1].Transform().Location, walk[i].Transform().Location)
				assert.LessOrEqual(t, d, resolution*1.5, "%s edge %d->%d at %d", name, e.From, e.To, i)
			}
			// 采样在距出口不超过一个间距时停止，最后一段最长为两个间距
			last := walk[len(walk)-1].Transform().Location
			assert.LessOrEqual(t, misc.Distance(last, e.Exit.Transform().Location), 2*resolution+1e-6,
				"%s edge %d->%d exit", name, e.From, e.To)
			if len(e.Path) > 0 && misc.Distance(e.Entry.Transform().Location, e.Exit.Transform().Location) > resolution {
				assert.Greater(t, misc.Distance(last, e.Exit.Transform().Location), resolution,
					"%s edge %d->%d stops early", name, e.From, e.To)
			}
		}
	}
}

func TestGraphStructure(t *testing.T) {
	p := newPlanner(t, world.FourWayJunction())
	// 7条车道，进口道终点与3条连接道起点合并
	assert.Len(t, p.Nodes(), 8)
	assert.Len(t, p.Edges(), 7)
	for _, e := range p.Edges() {
		assert.Equal(t, e.Entry.IsJunction(), e.Intersection)
	}

	p = newPlanner(t, world.TwoLaneRoad(60))
	assert.Len(t, p.Nodes(), 4)
	require.Len(t, p.Edges(), 4)
	changes := map[entity.RoadOption]int{}
	for _, e := range p.Edges() {
		if e.Type.IsLaneChange() {
			changes[e.Type]++
			require.NotNil(t, e.ChangeWaypoint)
			assert.Nil(t, e.ExitVector)
		}
	}
	assert.Equal(t, map[entity.RoadOption]int{
		entity.RoadOptionChangeLaneLeft:  1,
		entity.RoadOptionChangeLaneRight: 1,
	}, changes)
}

func TestPathSearch(t *testing.T) {
	p := newPlanner(t, world.FourWayJunction())
	origin, destination := r3.Vec{X: -45}, r3.Vec{Y: -40}
	first, err := p.PathSearch(origin, destination)
	require.NoError(t, err)
	second, err := p.PathSearch(origin, destination)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("path search is not idempotent (-first +second):\n%s", diff)
	}
	require.Len(t, first, 4)
	for i := 1; i < len(first); i++ {
		_, ok := p.Edge(first[i-1], first[i])
		assert.True(t, ok, "no edge %d->%d", first[i-1], first[i])
	}

	// 与gonum的Dijkstra结果对照（去掉追加的终点边终点）
	g := p.Graph()
	shortest := path.DijkstraFrom(g.Node(int64(first[0])), g)
	nodes, weight := shortest.To(int64(first[len(first)-2]))
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, int(n.ID()))
	}
	if diff := cmp.Diff(first[:len(first)-1], ids); diff != "" {
		t.Errorf("A* differs from Dijkstra (-astar +dijkstra):\n%s", diff)
	}
	total := 0.
	for i := 1; i < len(first)-1; i++ {
		e, _ := p.Edge(first[i-1], first[i])
		total += float64(e.Length)
	}
	assert.Equal(t, weight, total)
}

func TestPathSearchErrors(t *testing.T) {
	p := newPlanner(t, world.FourWayJunction())
	_, err := p.PathSearch(r3.Vec{X: -45, Y: 30}, r3.Vec{X: 30})
	assert.ErrorIs(t, err, entity.ErrLocalization)
	_, err = p.PathSearch(r3.Vec{X: -45}, r3.Vec{X: 30, Y: 30})
	assert.ErrorIs(t, err, entity.ErrLocalization)
	// 出口道没有后继，无法回到进口道
	_, err = p.PathSearch(r3.Vec{Y: -30}, r3.Vec{X: -30})
	assert.ErrorIs(t, err, route.ErrRouteNotFound)
	_, err = p.TraceRoute(r3.Vec{Y: -30}, r3.Vec{X: -30})
	assert.ErrorIs(t, err, route.ErrRouteNotFound)
}

func TestTraceStraightRoad(t *testing.T) {
	p := newPlanner(t, world.StraightRoad(100))
	destination := r3.Vec{X: 10 + 40*resolution}
	trace, err := p.TraceRoute(r3.Vec{X: 10}, destination)
	require.NoError(t, err)
	require.NotEmpty(t, trace)
	for _, rp := range trace {
		assert.Equal(t, entity.RoadOptionLaneFollow, rp.Option)
	}
	last := trace[len(trace)-1].Waypoint.Transform().Location
	assert.Less(t, misc.Distance(last, destination), 2*resolution)
	assert.InDelta(t, 10, trace[0].Waypoint.Transform().Location.X, 1e-9)
}

func TestTraceContinuity(t *testing.T) {
	cases := []struct {
		data                world.MapData
		origin, destination r3.Vec
	}{
		{world.StraightRoad(100), r3.Vec{X: 3}, r3.Vec{X: 97}},
		{world.FourWayJunction(), r3.Vec{X: -45}, r3.Vec{Y: -40}},
		{world.FourWayJunction(), r3.Vec{X: -45}, r3.Vec{X: 40}},
		{world.FourWayJunction(), r3.Vec{X: -45}, r3.Vec{Y: 40}},
		{world.TwoLaneRoad(60), r3.Vec{X: 5}, r3.Vec{X: 50, Y: 3.5}},
	}
	for i, c := range cases {
		p := newPlanner(t, c.data)
		trace, err := p.TraceRoute(c.origin, c.destination)
		require.NoError(t, err, "case %d", i)
		for j := 1; j < len(trace); j++ {
			if trace[j].Option.IsLaneChange() {
				continue
			}
			d := misc.Distance(trace[j-1].Waypoint.Transform().Location, trace[j].Waypoint.Transform().Location)
			assert.LessOrEqual(t, d, 2*resolution, "case %d at %d", i, j)
		}
	}
}

func TestTurnDecision(t *testing.T) {
	p := newPlanner(t, world.FourWayJunction())
	cases := map[string]struct {
		destination r3.Vec
		want        entity.RoadOption
	}{
		"left":     {r3.Vec{Y: -40}, entity.RoadOptionLeft},
		"straight": {r3.Vec{X: 40}, entity.RoadOptionStraight},
		"right":    {r3.Vec{Y: 40}, entity.RoadOptionRight},
	}
	for name, c := range cases {
		trace, err := p.TraceRoute(r3.Vec{X: -45}, c.destination)
		require.NoError(t, err, name)
		assert.Equal(t, []entity.RoadOption{
			entity.RoadOptionLaneFollow, c.want, entity.RoadOptionLaneFollow,
		}, options(trace), name)
	}
}

func TestTurnDecisionWithoutSiblings(t *testing.T) {
	data := world.FourWayJunction()
	var lanes []world.LaneData
	for _, l := range data.Lanes {
		switch l.ID {
		case 10, 12, 2, 4:
			continue
		case 1:
			l.Successors = []int32{11}
		}
		lanes = append(lanes, l)
	}
	data.Lanes = lanes
	p := newPlanner(t, data)
	trace, err := p.TraceRoute(r3.Vec{X: -45}, r3.Vec{Y: -40})
	require.NoError(t, err)
	assert.Equal(t, []entity.RoadOption{
		entity.RoadOptionLaneFollow, entity.RoadOptionLeft, entity.RoadOptionLaneFollow,
	}, options(trace))
}

// 出口道排在最前，使路口出口成为0号节点
func TestTurnDecisionJunctionExitNodeZero(t *testing.T) {
	p := newPlanner(t, world.MapData{Lanes: []world.LaneData{
		{ID: 4, Road: 4, Lane: -1, Width: 3.5, CenterLine: []world.Point{{X: 10}, {X: 50}}},
		{ID: 1, Road: 1, Lane: -1, Width: 3.5, CenterLine: []world.Point{{X: -50}, {X: -10}}, Successors: []int32{2}},
		{ID: 2, Road: 2, Lane: -1, Width: 3.5, Junction: true, CenterLine: []world.Point{{X: -10}, {X: 0}}, Successors: []int32{3}},
		{ID: 3, Road: 3, Lane: -1, Width: 3.5, Junction: true, CenterLine: []world.Point{{X: 0}, {X: 10}}, Successors: []int32{4}},
	}})
	require.InDelta(t, 10, p.Nodes()[0].Vertex.X, 1e-9)

	trace, err := p.TraceRoute(r3.Vec{X: -45}, r3.Vec{X: 45})
	require.NoError(t, err)
	assert.Equal(t, []entity.RoadOption{
		entity.RoadOptionLaneFollow, entity.RoadOptionStraight, entity.RoadOptionLaneFollow,
	}, options(trace))
	// 路口的第二条连接道沿用驶入路口时的判定
	second := 0
	for _, rp := range trace {
		if rp.Waypoint.IsJunction() && rp.Waypoint.Transform().Location.X > 0 {
			second++
			assert.Equal(t, entity.RoadOptionStraight, rp.Option)
		}
	}
	assert.Positive(t, second)
}

func TestTraceLaneChange(t *testing.T) {
	p := newPlanner(t, world.TwoLaneRoad(60))
	trace, err := p.TraceRoute(r3.Vec{X: 5}, r3.Vec{X: 50, Y: 3.5})
	require.NoError(t, err)
	assert.Equal(t, []entity.RoadOption{
		entity.RoadOptionChangeLaneRight, entity.RoadOptionLaneFollow,
	}, options(trace))
	// 变道前后各一个点，变道后的点在目标车道上并且前移
	assert.Equal(t, int32(-1), trace[0].Waypoint.LaneID())
	assert.Equal(t, int32(-2), trace[1].Waypoint.LaneID())
	assert.Greater(t, trace[1].Waypoint.Transform().Location.X, 5.)
	assert.Equal(t, int32(-2), trace[len(trace)-1].Waypoint.LaneID())
}

// looseMap 只把第一条车道的起点与第二条车道的起点作为拓扑，使第二条车道成为孤立端点
type looseMap struct {
	*world.Map
}

func (m looseMap) Topology() []entity.TopologySegment {
	first, _ := m.WaypointOnLane(1, 0)
	second, _ := m.WaypointOnLane(2, 0)
	return []entity.TopologySegment{{Entry: first, Exit: second}}
}

func TestLooseEnds(t *testing.T) {
	m, err := world.NewMap(world.MapData{Lanes: []world.LaneData{
		{ID: 1, Road: 1, Lane: -1, Width: 3.5, CenterLine: []world.Point{{X: 0}, {X: 20}}, Successors: []int32{2}},
		{ID: 2, Road: 2, Lane: -1, Width: 3.5, CenterLine: []world.Point{{X: 20}, {X: 40}}},
	}})
	require.NoError(t, err)
	p := route.NewGlobalPlanner(looseMap{m}, resolution)
	require.Len(t, p.Edges(), 2)
	loose := p.Edges()[1]
	assert.Nil(t, loose.ExitVector)
	assert.Len(t, loose.Path, 10)
	assert.InDelta(t, 40, p.Nodes()[loose.To].Vertex.X, 1e-9)

	trace, err := p.TraceRoute(r3.Vec{X: 5}, r3.Vec{X: 30})
	require.NoError(t, err)
	assert.Equal(t, []entity.RoadOption{entity.RoadOptionLaneFollow}, options(trace))
	last := trace[len(trace)-1].Waypoint.Transform().Location
	assert.Less(t, misc.Distance(last, r3.Vec{X: 30}), 2*resolution)
}

func TestMarshalDOT(t *testing.T) {
	p := newPlanner(t, world.TwoLaneRoad(60))
	b, err := p.MarshalDOT("two_lane")
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, "strict digraph two_lane {"))
	assert.Contains(t, s, "CHANGELANERIGHT")
	assert.Contains(t, s, "LANEFOLLOW")
	assert.Equal(t, 4, p.Graph().Edges().Len())
}
