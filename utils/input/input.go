// 输入数据加载：从YAML文件或MongoDB集合读取路网与场景
package input

import (
	"context"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/navstack/entity/world"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"
)

// Load 加载路网与场景数据
// 参数：ctx-MongoDB访问的上下文，in-输入配置
// 返回：路网与场景数据
// 算法说明：
// 1. map.file非空时从YAML文件加载（严格模式，未知字段报错）
// 2. 否则连接uri指定的MongoDB，逐个读取map.db.map.col中的文档，按class字段分发到对应的数据列表
// 说明：两种来源得到的数据完全相同，后续由world.New统一校验
func Load(ctx context.Context, in config.Input) (world.MapData, error) {
	if in.Map.File != "" {
		return LoadFile(in.Map.File)
	}
	if in.URI == "" {
		return world.MapData{}, fmt.Errorf("input: neither map.file nor uri is specified")
	}
	client := mongoutil.NewClient(in.URI)
	defer client.Disconnect(context.Background())
	coll := mongoutil.GetMongoColl(client, in.Map)
	log.Infof("start fetching from %s.%s", in.Map.DB, in.Map.Col)
	data, err := loadCollection(ctx, coll)
	if err != nil {
		return world.MapData{}, err
	}
	log.Infof("finish fetching from %s.%s: %d lanes", in.Map.DB, in.Map.Col, len(data.Lanes))
	return data, nil
}

// LoadFile 从YAML文件加载路网与场景数据
func LoadFile(path string) (world.MapData, error) {
	var data world.MapData
	file, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("input: %w", err)
	}
	if err := yaml.UnmarshalStrict(file, &data); err != nil {
		return data, fmt.Errorf("input: %s: %w", path, err)
	}
	log.Infof("loaded %s: %d lanes, %d traffic lights, %d vehicles, %d walkers",
		path, len(data.Lanes), len(data.TrafficLights), len(data.Vehicles), len(data.Walkers))
	return data, nil
}

func loadCollection(ctx context.Context, coll *mongo.Collection) (world.MapData, error) {
	var data world.MapData
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return data, fmt.Errorf("input: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		if err := decodeDocument(cur.Current, &data); err != nil {
			return data, err
		}
	}
	if err := cur.Err(); err != nil {
		return data, fmt.Errorf("input: %w", err)
	}
	return data, nil
}
