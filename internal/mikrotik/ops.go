package mikrotik

import (
	"fmt"
	"log"
	"strings"
)

// ActiveSession represents a live connection reported by the router,
// from either the User Manager or the PPP subsystem
type ActiveSession struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Address   string `json:"address"`
	Uptime    string `json:"uptime"`
	CallerID  string `json:"caller_id"`
	Service   string `json:"service"`
	SessionID string `json:"session_id"`
	Source    string `json:"source"` // user-manager or ppp
}

// RouterUser represents a VPN credential on the router
type RouterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Group    string `json:"group"`
	Disabled bool   `json:"disabled"`
	Comment  string `json:"comment"`
	Source   string `json:"source"`
}

// FirewallRule represents an /ip/firewall/filter entry
type FirewallRule struct {
	ID       string `json:"id"`
	Chain    string `json:"chain"`
	Action   string `json:"action"`
	Comment  string `json:"comment"`
	Disabled bool   `json:"disabled"`
}

// ActiveSessions returns the union of active User Manager sessions and
// PPP active connections. User Manager may be absent on the router, in
// which case only PPP results are returned.
func (c *Client) ActiveSessions() ([]ActiveSession, error) {
	var sessions []ActiveSession
	seen := make(map[string]bool)

	umSessions, umErr := c.Run("/user-manager/session/print", "?active=yes")
	if umErr != nil {
		log.Printf("MikroTik: user-manager session listing unavailable: %v", umErr)
	} else {
		for _, s := range umSessions {
			sess := ActiveSession{
				ID:        s[".id"],
				Username:  s["user"],
				Address:   s["user-address"],
				Uptime:    s["uptime"],
				CallerID:  s["calling-station-id"],
				SessionID: s["acct-session-id"],
				Source:    "user-manager",
			}
			if sess.Username == "" {
				continue
			}
			sessions = append(sessions, sess)
			seen[sess.Username] = true
		}
	}

	pppActive, pppErr := c.Run("/ppp/active/print")
	if pppErr != nil {
		if umErr != nil {
			return nil, fmt.Errorf("both user-manager and ppp listing failed: %v", pppErr)
		}
		return sessions, nil
	}

	for _, s := range pppActive {
		name := s["name"]
		if name == "" || seen[name] {
			continue
		}
		sessions = append(sessions, ActiveSession{
			ID:        s[".id"],
			Username:  name,
			Address:   s["address"],
			Uptime:    s["uptime"],
			CallerID:  s["caller-id"],
			Service:   s["service"],
			SessionID: s["session-id"],
			Source:    "ppp",
		})
	}

	return sessions, nil
}

// ListUsers returns VPN credentials known to the router. User Manager
// users are preferred; PPP secrets fill in when User Manager is absent.
func (c *Client) ListUsers() ([]RouterUser, error) {
	var users []RouterUser
	seen := make(map[string]bool)

	umUsers, umErr := c.Run("/user-manager/user/print")
	if umErr == nil {
		for _, u := range umUsers {
			user := RouterUser{
				ID:       u[".id"],
				Name:     u["name"],
				Group:    u["group"],
				Disabled: u["disabled"] == "true",
				Comment:  u["comment"],
				Source:   "user-manager",
			}
			if user.Name == "" {
				continue
			}
			users = append(users, user)
			seen[user.Name] = true
		}
	}

	secrets, pppErr := c.Run("/ppp/secret/print")
	if pppErr != nil {
		if umErr != nil {
			return nil, fmt.Errorf("both user-manager and ppp listing failed: %v", pppErr)
		}
		return users, nil
	}

	for _, u := range secrets {
		name := u["name"]
		if name == "" || seen[name] {
			continue
		}
		users = append(users, RouterUser{
			ID:       u[".id"],
			Name:     name,
			Group:    u["profile"],
			Disabled: u["disabled"] == "true",
			Comment:  u["comment"],
			Source:   "ppp",
		})
	}

	return users, nil
}

// CreateUser creates a VPN credential, preferring User Manager
func (c *Client) CreateUser(name, password, group string) error {
	args := []string{"=name=" + name, "=password=" + password}
	if group != "" {
		args = append(args, "=group="+group)
	}

	if _, err := c.Run("/user-manager/user/add", args...); err == nil {
		return nil
	}

	// PPP fallback
	args = []string{"=name=" + name, "=password=" + password}
	if group != "" {
		args = []string{"=name=" + name, "=password=" + password, "=profile=" + group}
	}
	if _, err := c.Run("/ppp/secret/add", args...); err != nil {
		return fmt.Errorf("failed to create user %s: %v", name, err)
	}
	return nil
}

// DeleteUser removes a VPN credential from the router
func (c *Client) DeleteUser(name string) error {
	removed := false

	if id, err := c.findUserID("/user-manager/user/print", name); err == nil && id != "" {
		if _, err := c.Run("/user-manager/user/remove", "=.id="+id); err == nil {
			removed = true
		}
	}

	if id, err := c.findUserID("/ppp/secret/print", name); err == nil && id != "" {
		if _, err := c.Run("/ppp/secret/remove", "=.id="+id); err == nil {
			removed = true
		}
	}

	if !removed {
		return fmt.Errorf("user %s not found on router", name)
	}
	return nil
}

// EnableUser enables a VPN credential
func (c *Client) EnableUser(name string) error {
	return c.setUserDisabled(name, false)
}

// DisableUser disables a VPN credential
func (c *Client) DisableUser(name string) error {
	return c.setUserDisabled(name, true)
}

func (c *Client) setUserDisabled(name string, disabled bool) error {
	value := "no"
	if disabled {
		value = "yes"
	}

	updated := false

	if id, err := c.findUserID("/user-manager/user/print", name); err == nil && id != "" {
		if _, err := c.Run("/user-manager/user/set", "=.id="+id, "=disabled="+value); err == nil {
			updated = true
		}
	}

	if id, err := c.findUserID("/ppp/secret/print", name); err == nil && id != "" {
		if _, err := c.Run("/ppp/secret/set", "=.id="+id, "=disabled="+value); err == nil {
			updated = true
		}
	}

	if !updated {
		return fmt.Errorf("user %s not found on router", name)
	}
	return nil
}

func (c *Client) findUserID(printPath, name string) (string, error) {
	rows, err := c.Run(printPath, "?name="+name)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if row["name"] == name {
			return row[".id"], nil
		}
	}
	return "", nil
}

// DisconnectUser drops the user's live PPP connection
func (c *Client) DisconnectUser(username string) error {
	rows, err := c.Run("/ppp/active/print", "?name="+username)
	if err != nil {
		return fmt.Errorf("failed to find session: %v", err)
	}

	var sessionID string
	for _, row := range rows {
		if row["name"] == username {
			sessionID = row[".id"]
			break
		}
	}

	if sessionID == "" {
		return fmt.Errorf("user not connected")
	}

	if _, err := c.Run("/ppp/active/remove", "=.id="+sessionID); err != nil {
		return fmt.Errorf("failed to disconnect: %v", err)
	}
	return nil
}

// ListFirewallRules returns all /ip/firewall/filter entries
func (c *Client) ListFirewallRules() ([]FirewallRule, error) {
	rows, err := c.Run("/ip/firewall/filter/print")
	if err != nil {
		return nil, err
	}

	rules := make([]FirewallRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, FirewallRule{
			ID:       row[".id"],
			Chain:    row["chain"],
			Action:   row["action"],
			Comment:  row["comment"],
			Disabled: row["disabled"] == "true",
		})
	}
	return rules, nil
}

// FindRuleByComment locates a firewall rule whose comment matches the
// given tag (case-insensitive)
func (c *Client) FindRuleByComment(comment string) (*FirewallRule, error) {
	if comment == "" {
		return nil, fmt.Errorf("empty firewall comment")
	}

	rules, err := c.ListFirewallRules()
	if err != nil {
		return nil, err
	}

	for i := range rules {
		if strings.EqualFold(rules[i].Comment, comment) {
			return &rules[i], nil
		}
	}
	return nil, fmt.Errorf("no firewall rule with comment %q", comment)
}

// EnableFirewallRule enables a firewall rule by internal id
func (c *Client) EnableFirewallRule(id string) error {
	return c.setRuleDisabled(id, false)
}

// DisableFirewallRule disables a firewall rule by internal id
func (c *Client) DisableFirewallRule(id string) error {
	return c.setRuleDisabled(id, true)
}

func (c *Client) setRuleDisabled(id string, disabled bool) error {
	value := "no"
	if disabled {
		value = "yes"
	}
	if _, err := c.Run("/ip/firewall/filter/set", "=.id="+id, "=disabled="+value); err != nil {
		return fmt.Errorf("failed to update firewall rule %s: %v", id, err)
	}
	return nil
}
