// Package model 定义了与数据库表对应的数据结构
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap 开放式键值包，对应数据库中的 JSON 列
// 消息的 metadata 字段没有固定 schema，渲染行为由其中的 demo 字段决定
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer，写库时序列化为 JSON
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner，读库时反序列化
// 兼容 []byte 和 string 两种驱动返回形式
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported JSONMap source type %T", value)
	}
}

// String 按键取字符串值，不存在或类型不符时返回空串
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Map 按键取嵌套对象，不存在时返回 nil
// metadata.next 这样的转移描述就是嵌套对象
func (m JSONMap) Map(key string) JSONMap {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case JSONMap:
		return v
	case map[string]interface{}:
		return JSONMap(v)
	default:
		return nil
	}
}

// Bool 按键取布尔值
func (m JSONMap) Bool(key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

// Clone 返回浅拷贝，修改 metadata 前先拷贝，避免影响调用方持有的原对象
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StringList 字符串数组，对应数据库中的 JSON 列
// 用于消息的快捷回复按钮等有序标签列表
type StringList []string

// Value 实现 driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported StringList source type %T", value)
	}
}
