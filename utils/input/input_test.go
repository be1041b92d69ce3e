package input_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/input"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v2"
)

const mapYAML = `
lanes:
  - id: 1
    road: 1
    section: 0
    lane: -1
    width: 3.5
    lane_change: right
    center_line: [{x: 0, y: 0}, {x: 100, y: 0}]
    right_lane: 2
  - id: 2
    road: 1
    section: 0
    lane: -2
    width: 3.5
    lane_change: left
    center_line: [{x: 0, y: 3.5}, {x: 100, y: 3.5}]
    left_lane: 1
traffic_lights:
  - id: 100
    location: {x: 100, y: 6}
    yaw: 0
    trigger_location: {x: -4, y: -4}
    trigger_extent: {x: 3, y: 4, z: 1}
    state: red
    red: 10
    green: 10
    yellow: 3
vehicles:
  - {id: 2, lane_id: 2, s: 30, speed: 20}
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	data, err := input.Load(context.Background(), config.Input{Map: config.InputPath{File: writeFile(t, mapYAML)}})
	require.NoError(t, err)
	require.Len(t, data.Lanes, 2)
	assert.Equal(t, "right", data.Lanes[0].LaneChange)
	require.NotNil(t, data.Lanes[0].RightLane)
	assert.Equal(t, int32(2), *data.Lanes[0].RightLane)
	assert.Nil(t, data.Lanes[0].LeftLane)
	require.Len(t, data.TrafficLights, 1)
	assert.Equal(t, 10., data.TrafficLights[0].Red)
	require.Len(t, data.Vehicles, 1)
	assert.Equal(t, int32(2), data.Vehicles[0].LaneID)

	_, err = world.New(data, 1)
	assert.NoError(t, err)
}

func TestLoadFileRoundTrip(t *testing.T) {
	want := world.FourWayJunction()
	b, err := yaml.Marshal(want)
	require.NoError(t, err)
	got, err := input.LoadFile(writeFile(t, string(b)))
	require.NoError(t, err)
	assert.Equal(t, want.Lanes[4].Successors, got.Lanes[4].Successors)
	assert.Len(t, got.Lanes, len(want.Lanes))
	assert.Equal(t, want.TrafficLights[0].TriggerLocation, got.TrafficLights[0].TriggerLocation)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := input.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = input.LoadFile(writeFile(t, "lanes: []\nroads: []\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = input.Load(context.Background(), config.Input{})
	assert.Error(t, err)
}

func TestDecodeDocument(t *testing.T) {
	left := int32(1)
	docs := []any{
		bson.M{"class": "lane", "data": world.LaneData{ID: 2, Road: 1, Lane: -2, Width: 3.5, LeftLane: &left}},
		bson.M{"class": "vehicle", "data": world.VehicleData{ID: 5, LaneID: 2, S: 10}},
		bson.M{"class": "walker", "data": world.WalkerData{ID: 6, Speed: 1}},
		bson.M{"class": "traffic_light", "data": world.TrafficLightData{ID: 7, State: "red"}},
		bson.M{"class": "aoi", "data": bson.M{"id": 1}},
	}
	var data world.MapData
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		require.NoError(t, err)
		require.NoError(t, input.DecodeDocument(raw, &data))
	}
	require.Len(t, data.Lanes, 1)
	require.NotNil(t, data.Lanes[0].LeftLane)
	assert.Equal(t, int32(1), *data.Lanes[0].LeftLane)
	assert.Nil(t, data.Lanes[0].RightLane)
	assert.Len(t, data.Vehicles, 1)
	assert.Len(t, data.Walkers, 1)
	require.Len(t, data.TrafficLights, 1)
	assert.Equal(t, "red", data.TrafficLights[0].State)

	raw, err := bson.Marshal(bson.M{"class": "lane", "data": bson.M{"id": "not a number"}})
	require.NoError(t, err)
	assert.Error(t, input.DecodeDocument(raw, &data))
}
