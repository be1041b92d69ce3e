package world

import (
	"math"
)

// 常用路网数据，供测试与示例场景使用
// 坐标约定：x向前，y向右，yaw顺时针为正（度）

const fixtureLaneWidth = 3.5

func int32Ptr(v int32) *int32 {
	return &v
}

func straightLine(x0, y0, x1, y1 float64) []Point {
	return []Point{{X: x0, Y: y0}, {X: x1, Y: y1}}
}

// arc 以(cx,cy)为圆心、r为半径，从角度from（度）到to（度）的圆弧，均匀取n段
func arc(cx, cy, r, from, to float64, n int) []Point {
	res := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := (from + (to-from)*float64(i)/float64(n)) * math.Pi / 180
		res = append(res, Point{X: cx + r*math.Cos(t), Y: cy + r*math.Sin(t)})
	}
	// 端点精确对齐，保证与相接车道共用图节点
	res[0] = Point{X: math.Round(res[0].X*1e6) / 1e6, Y: math.Round(res[0].Y*1e6) / 1e6}
	res[n] = Point{X: math.Round(res[n].X*1e6) / 1e6, Y: math.Round(res[n].Y*1e6) / 1e6}
	return res
}

// StraightRoad 单车道直路，沿x轴正方向从(0,0)到(length,0)，车道ID为1
func StraightRoad(length float64) MapData {
	return MapData{
		Lanes: []LaneData{{
			ID: 1, Road: 1, Section: 0, Lane: -1,
			Width:      fixtureLaneWidth,
			CenterLine: straightLine(0, 0, length, 0),
		}},
	}
}

// TwoLaneRoad 同向双车道直路
// 车道1在左（y=0），车道2在右（y=3.5），两车道之间允许互相变道
func TwoLaneRoad(length float64) MapData {
	return MapData{
		Lanes: []LaneData{
			{
				ID: 1, Road: 1, Section: 0, Lane: -1,
				Width:      fixtureLaneWidth,
				LaneChange: "right",
				CenterLine: straightLine(0, 0, length, 0),
				RightLane:  int32Ptr(2),
			},
			{
				ID: 2, Road: 1, Section: 0, Lane: -2,
				Width:      fixtureLaneWidth,
				LaneChange: "left",
				CenterLine: straightLine(0, fixtureLaneWidth, length, fixtureLaneWidth),
				LeftLane:   int32Ptr(1),
			},
		},
	}
}

// FourWayJunction 十字路口
// 进口道：车道1从(-50,0)向东到(-10,0)
// 路口内连接道：10直行到(10,0)，11左转到(0,-10)，12右转到(0,10)
// 出口道：车道2向东(10,0)->(50,0)，车道3向北(0,-10)->(0,-50)，车道4向南(0,10)->(0,50)
// 信号灯100位于进口道停车线右侧，触发区覆盖进口道末端，初始为绿灯且不自动切换
func FourWayJunction() MapData {
	return MapData{
		Lanes: []LaneData{
			{ID: 1, Road: 1, Lane: -1, Width: fixtureLaneWidth, CenterLine: straightLine(-50, 0, -10, 0), Successors: []int32{10, 11, 12}},
			{ID: 2, Road: 2, Lane: -1, Width: fixtureLaneWidth, CenterLine: straightLine(10, 0, 50, 0)},
			{ID: 3, Road: 3, Lane: -1, Width: fixtureLaneWidth, CenterLine: straightLine(0, -10, 0, -50)},
			{ID: 4, Road: 4, Lane: -1, Width: fixtureLaneWidth, CenterLine: straightLine(0, 10, 0, 50)},
			{ID: 10, Road: 10, Lane: -1, Width: fixtureLaneWidth, Junction: true, CenterLine: straightLine(-10, 0, 10, 0), Successors: []int32{2}},
			{ID: 11, Road: 11, Lane: -1, Width: fixtureLaneWidth, Junction: true, CenterLine: arc(-10, -10, 10, 90, 0, 12), Successors: []int32{3}},
			{ID: 12, Road: 12, Lane: -1, Width: fixtureLaneWidth, Junction: true, CenterLine: arc(-10, 10, 10, -90, 0, 12), Successors: []int32{4}},
		},
		TrafficLights: []TrafficLightData{{
			ID:              100,
			Location:        Point{X: -10, Y: 4},
			TriggerLocation: Point{X: -4, Y: -4},
			TriggerExtent:   Point{X: 3, Y: 1.5, Z: 1},
			State:           "green",
		}},
	}
}
