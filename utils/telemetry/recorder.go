// 逐步遥测记录：把受控车辆每一步的状态与控制指令写入SQLite
package telemetry

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Sample 一个仿真步的记录
type Sample struct {
	Step       int32
	T          float64 // 仿真时间（s）
	X, Y, Yaw  float64
	Speed      float64 // km/h
	Throttle   float64
	Steer      float64
	Brake      float64
	RoadOption string // 当前目标路点的驾驶动作
	Done       bool
}

// Recorder SQLite遥测记录器
// 说明：每次Open生成一个新的运行ID，同一数据库文件可以保存多次运行
type Recorder struct {
	db     *sql.DB
	runID  string
	insert *sql.Stmt
}

// Open 打开（必要时创建）数据库并登记一次运行
// 参数：path-数据库文件路径，kind-智能体类型，description-运行说明
func Open(path, kind, description string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: create schema: %w", err)
	}
	r := &Recorder{db: db, runID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO runs (run_id, agent_kind, description) VALUES (?, ?, ?)`,
		r.runID, kind, description); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: register run: %w", err)
	}
	r.insert, err = db.Prepare(`
		INSERT INTO ticks (run_id, step, t, x, y, yaw, speed, throttle, steer, brake, road_option, done)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	log.Infof("recording run %s to %s", r.runID, path)
	return r, nil
}

// RunID 本次运行的ID
func (r *Recorder) RunID() string {
	return r.runID
}

// Record 写入一步记录
func (r *Recorder) Record(s Sample) error {
	_, err := r.insert.Exec(r.runID, s.Step, s.T, s.X, s.Y, s.Yaw, s.Speed,
		s.Throttle, s.Steer, s.Brake, s.RoadOption, s.Done)
	if err != nil {
		return fmt.Errorf("telemetry: insert step %d: %w", s.Step, err)
	}
	return nil
}

// Samples 按步数顺序读出一次运行的全部记录
func (r *Recorder) Samples(runID string) ([]Sample, error) {
	rows, err := r.db.Query(`
		SELECT step, t, x, y, yaw, speed, throttle, steer, brake, road_option, done
		FROM ticks WHERE run_id = ? ORDER BY step
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	defer rows.Close()
	var res []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Step, &s.T, &s.X, &s.Y, &s.Yaw, &s.Speed,
			&s.Throttle, &s.Steer, &s.Brake, &s.RoadOption, &s.Done); err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Runs 数据库中全部运行的ID，按开始时间排序
func (r *Recorder) Runs() ([]string, error) {
	rows, err := r.db.Query(`SELECT run_id FROM runs ORDER BY started_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

// Close 关闭数据库
func (r *Recorder) Close() error {
	if err := r.insert.Close(); err != nil {
		log.Warnf("close statement: %v", err)
	}
	return r.db.Close()
}
