package input

import (
	"fmt"

	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"go.mongodb.org/mongo-driver/bson"
)

// 文档类型（class字段）
const (
	classLane         = "lane"
	classTrafficLight = "traffic_light"
	classVehicle      = "vehicle"
	classWalker       = "walker"
)

// document MongoDB中的一条文档：{class: ..., data: {...}}
type document struct {
	Class string   `bson:"class"`
	Data  bson.Raw `bson:"data"`
}

// decodeDocument 按class解码一条文档并追加到data中
// 说明：未知的class记录警告后忽略，便于与其他数据放在同一个集合中
func decodeDocument(raw bson.Raw, data *world.MapData) error {
	var doc document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("input: bad document: %w", err)
	}
	var err error
	switch doc.Class {
	case classLane:
		err = appendDecoded(doc.Data, &data.Lanes)
	case classTrafficLight:
		err = appendDecoded(doc.Data, &data.TrafficLights)
	case classVehicle:
		err = appendDecoded(doc.Data, &data.Vehicles)
	case classWalker:
		err = appendDecoded(doc.Data, &data.Walkers)
	default:
		log.Warnf("ignore document with unknown class %q", doc.Class)
		return nil
	}
	if err != nil {
		return fmt.Errorf("input: bad %s document: %w", doc.Class, err)
	}
	return nil
}

func appendDecoded[T any](raw bson.Raw, list *[]T) error {
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return err
	}
	*list = append(*list, v)
	return nil
}
