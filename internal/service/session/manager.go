// Package session 导入向导会话：持有一次预览加载的快照与用户选择状态
package session

import (
	"sync"

	"github.com/google/uuid"

	"eedc/internal/model"
	"eedc/internal/service/reconcile"
	"eedc/internal/service/selection"
)

// Session 单个安装的向导会话
// 快照（Periods/Engine）在会话生命周期内只读；Selection 与 Mappings 可自由修改
type Session struct {
	ID         string
	AnlageID   string
	Generation uint64

	Periods   []model.PeriodData
	Engine    *reconcile.Engine
	Selection *selection.Store

	// 会话内编辑中的字段映射（保存前的工作副本）
	BaseMappings      map[string]model.FieldMapping
	ComponentMappings map[string]map[string]model.FieldMapping
}

// NewSession 基于一次预览快照创建会话并预置选择状态
func NewSession(anlageID string, generation uint64, periods []model.PeriodData) *Session {
	engine := reconcile.NewEngine(periods)
	sel := selection.NewStore()
	sel.Initialize(periods, engine.Decide)

	return &Session{
		ID:                uuid.NewString(),
		AnlageID:          anlageID,
		Generation:        generation,
		Periods:           periods,
		Engine:            engine,
		Selection:         sel,
		BaseMappings:      make(map[string]model.FieldMapping),
		ComponentMappings: make(map[string]map[string]model.FieldMapping),
	}
}

// Manager 会话管理器，按安装 ID 保存至多一个活动会话
//
// 预览加载采用 last-request-wins：每次加载先领取新的 generation，
// 数据到达后仅当 generation 仍是最新时才安装会话；被后来的加载
// 超越的响应直接丢弃，不做合并
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	generations map[string]uint64
}

// NewManager 创建会话管理器
func NewManager() *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		generations: make(map[string]uint64),
	}
}

// BeginLoad 领取一次预览加载的 generation；旧的未完成加载随之失效
func (m *Manager) BeginLoad(anlageID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generations[anlageID]++
	return m.generations[anlageID]
}

// Install 安装加载完成的会话
// generation 已被更新的加载超越时返回 false，调用方应丢弃该快照
func (m *Manager) Install(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Generation != m.generations[s.AnlageID] {
		return false
	}
	m.sessions[s.AnlageID] = s
	return true
}

// Get 查找安装的活动会话
func (m *Manager) Get(anlageID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[anlageID]
	return s, ok
}

// Drop 结束并丢弃会话（切换安装或向导关闭时调用）
func (m *Manager) Drop(anlageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, anlageID)
}
