package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Host 一个可按别名连接的服务端
type Host struct {
	Alias string `json:"alias"`
	Host  string `json:"host"`
	Port  int    `json:"port"`
}

func (h Host) Addr() string { return net.JoinHostPort(h.Host, strconv.Itoa(h.Port)) }

// Hosts is the client-side alias table.
type Hosts struct {
	Hosts []Host `json:"hosts"`
}

func LoadHosts(path string) (*Hosts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hosts %s: %w", path, err)
	}
	h, err := ParseHosts(data)
	if err != nil {
		return nil, fmt.Errorf("hosts %s: %w", path, err)
	}
	return h, nil
}

func ParseHosts(data []byte) (*Hosts, error) {
	h := &Hosts{}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for i, e := range h.Hosts {
		if strings.TrimSpace(e.Alias) == "" || strings.TrimSpace(e.Host) == "" {
			return nil, fmt.Errorf("%w: hosts[%d] needs alias and host", ErrInvalid, i)
		}
		if e.Port < 1 || e.Port > MaxPort {
			return nil, fmt.Errorf("%w: hosts[%d] port %d out of range", ErrInvalid, i, e.Port)
		}
	}
	return h, nil
}

// FindByAlias 大小写不敏感，返回第一个匹配项
func (h *Hosts) FindByAlias(alias string) (Host, bool) {
	alias = strings.TrimSpace(alias)
	for _, e := range h.Hosts {
		if strings.EqualFold(e.Alias, alias) {
			return e, true
		}
	}
	return Host{}, false
}
