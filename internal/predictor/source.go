package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DescriptorSource 模型描述符来源；不存在时返回 (nil, nil)
type DescriptorSource interface {
	Load() (*Descriptor, error)
}

// FileSource 从 JSON 文件读取描述符：
// {"type":"logistic_regression","weights":[w1,w2],"bias":b,"threshold":t}
type FileSource struct {
	Path string
}

type fileModel struct {
	Type      string    `json:"type"`
	Weights   []float64 `json:"weights"`
	Bias      *float64  `json:"bias"`
	Threshold *float64  `json:"threshold"`
}

// Load 读取并解析模型文件
func (f FileSource) Load() (*Descriptor, error) {
	if f.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	return ParseDescriptor(data)
}

// ParseDescriptor 解析 JSON 描述符；权重不足两个视为无模型
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var m fileModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model descriptor: %w", err)
	}
	if m.Type != "" && m.Type != "logistic_regression" {
		return nil, fmt.Errorf("unsupported model type: %s", m.Type)
	}
	if len(m.Weights) < 2 {
		return nil, nil
	}

	d := &Descriptor{
		Weights:   [2]float64{m.Weights[0], m.Weights[1]},
		Threshold: DefaultThreshold,
	}
	if m.Bias != nil {
		d.Bias = *m.Bias
	}
	if m.Threshold != nil {
		d.Threshold = *m.Threshold
	}
	return d, nil
}
