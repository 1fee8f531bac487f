package mikrotik

import (
	"fmt"
	"log"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/security"
)

// Manager executes domain operations against the active router config,
// borrowing connections from the shared pool
type Manager struct {
	pool *ConnectionPool
}

// NewManager creates a manager backed by the global pool
func NewManager() *Manager {
	return &Manager{pool: GetPool()}
}

// ActiveConfig loads the active router config with decrypted password
func ActiveConfig() (*models.RouterConfig, error) {
	var cfg models.RouterConfig

	if err := database.CacheGet(database.CacheKeyRouter, &cfg); err != nil || cfg.ID == "" {
		if err := database.DB.Where("is_active = ?", true).First(&cfg).Error; err != nil {
			return nil, fmt.Errorf("no active router config: %w", err)
		}
		database.CacheSet(database.CacheKeyRouter, cfg, database.CacheTTLRouter)
	}

	password, err := security.Decrypt(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt router password: %w", err)
	}
	cfg.Password = password

	if cfg.RadiusSecret != "" {
		if secret, err := security.Decrypt(cfg.RadiusSecret); err == nil {
			cfg.RadiusSecret = secret
		}
	}

	return &cfg, nil
}

// ConfigByID loads a stored router config with decrypted credentials
func ConfigByID(id string) (*models.RouterConfig, error) {
	var cfg models.RouterConfig
	if err := database.DB.First(&cfg, "id = ?", id).Error; err != nil {
		return nil, err
	}

	password, err := security.Decrypt(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt router password: %w", err)
	}
	cfg.Password = password

	if cfg.RadiusSecret != "" {
		if secret, err := security.Decrypt(cfg.RadiusSecret); err == nil {
			cfg.RadiusSecret = secret
		}
	}
	return &cfg, nil
}

// withClient borrows a pooled connection to the active router and runs fn.
// Broken connections are dropped from the pool instead of returned.
func (m *Manager) withClient(fn func(*Client) error) error {
	cfg, err := ActiveConfig()
	if err != nil {
		return err
	}

	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	pc, err := m.pool.Get(address, cfg.Username, cfg.Password)
	if err != nil {
		return fmt.Errorf("router unavailable: %w", err)
	}

	if err := fn(pc.client); err != nil {
		m.pool.Remove(pc)
		return err
	}

	m.pool.Put(pc)
	return nil
}

// TestConfig checks connectivity for an arbitrary config (plaintext password)
func (m *Manager) TestConfig(cfg *models.RouterConfig) ConnectionResult {
	client := NewClient(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.Username, cfg.Password)
	defer client.Close()
	return client.TestConnection()
}

// ActiveSessions lists live connections on the active router
func (m *Manager) ActiveSessions() ([]ActiveSession, error) {
	var sessions []ActiveSession
	err := m.withClient(func(c *Client) error {
		var err error
		sessions, err = c.ActiveSessions()
		return err
	})
	return sessions, err
}

// ListUsers lists VPN credentials on the active router
func (m *Manager) ListUsers() ([]RouterUser, error) {
	var users []RouterUser
	err := m.withClient(func(c *Client) error {
		var err error
		users, err = c.ListUsers()
		return err
	})
	return users, err
}

// CreateUser creates a VPN credential on the active router
func (m *Manager) CreateUser(name, password, group string) error {
	return m.withClient(func(c *Client) error {
		return c.CreateUser(name, password, group)
	})
}

// DeleteUser removes a VPN credential from the active router
func (m *Manager) DeleteUser(name string) error {
	return m.withClient(func(c *Client) error {
		return c.DeleteUser(name)
	})
}

// EnableUser enables a VPN credential on the active router
func (m *Manager) EnableUser(name string) error {
	return m.withClient(func(c *Client) error {
		return c.EnableUser(name)
	})
}

// DisableUser disables a VPN credential on the active router
func (m *Manager) DisableUser(name string) error {
	return m.withClient(func(c *Client) error {
		return c.DisableUser(name)
	})
}

// DisconnectUser drops the user's live connection on the active router
func (m *Manager) DisconnectUser(name string) error {
	return m.withClient(func(c *Client) error {
		return c.DisconnectUser(name)
	})
}

// ListFirewallRules lists firewall filter rules on the active router
func (m *Manager) ListFirewallRules() ([]FirewallRule, error) {
	var rules []FirewallRule
	err := m.withClient(func(c *Client) error {
		var err error
		rules, err = c.ListFirewallRules()
		return err
	})
	return rules, err
}

// FindRuleByComment locates a firewall rule by its comment tag
func (m *Manager) FindRuleByComment(comment string) (*FirewallRule, error) {
	var rule *FirewallRule
	err := m.withClient(func(c *Client) error {
		var err error
		rule, err = c.FindRuleByComment(comment)
		return err
	})
	return rule, err
}

// SetFirewallRule toggles a firewall rule by internal id
func (m *Manager) SetFirewallRule(id string, enabled bool) error {
	return m.withClient(func(c *Client) error {
		if enabled {
			return c.EnableFirewallRule(id)
		}
		return c.DisableFirewallRule(id)
	})
}

// EnableUserFirewall enables the firewall rule bound to a user by
// comment tag. Missing tags or rules are logged and skipped.
func (m *Manager) EnableUserFirewall(comment string) string {
	return m.toggleUserFirewall(comment, true)
}

// DisableUserFirewall disables the firewall rule bound to a user
func (m *Manager) DisableUserFirewall(comment string) string {
	return m.toggleUserFirewall(comment, false)
}

func (m *Manager) toggleUserFirewall(comment string, enable bool) string {
	if comment == "" {
		return ""
	}

	rule, err := m.FindRuleByComment(comment)
	if err != nil {
		log.Printf("MikroTik: firewall rule lookup for %q failed: %v", comment, err)
		return ""
	}

	if err := m.SetFirewallRule(rule.ID, enable); err != nil {
		log.Printf("MikroTik: firewall rule toggle for %q failed: %v", comment, err)
		return ""
	}

	return rule.ID
}
