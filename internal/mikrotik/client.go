package mikrotik

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Client represents a MikroTik RouterOS API client
type Client struct {
	Address  string
	Username string
	Password string
	conn     net.Conn
	timeout  time.Duration
}

// ConnectionResult contains the result of a connection test
type ConnectionResult struct {
	Success    bool
	IsOnline   bool
	APIAuth    bool
	ErrorMsg   string
	RouterInfo map[string]string
}

// NewClient creates a new MikroTik client
func NewClient(address, username, password string) *Client {
	return &Client{
		Address:  address,
		Username: username,
		Password: password,
		timeout:  5 * time.Second,
	}
}

// TestConnection tests connectivity and authentication
func (c *Client) TestConnection() ConnectionResult {
	result := ConnectionResult{
		RouterInfo: make(map[string]string),
	}

	// Step 1: Check if port is reachable
	conn, err := net.DialTimeout("tcp", c.Address, c.timeout)
	if err != nil {
		result.ErrorMsg = fmt.Sprintf("Cannot reach router: %v", err)
		return result
	}
	defer conn.Close()

	result.IsOnline = true
	c.conn = conn
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Step 2: Try to authenticate with RouterOS API
	if err := c.sendWord("/login"); err != nil {
		result.ErrorMsg = fmt.Sprintf("Failed to send login: %v", err)
		return result
	}
	if err := c.sendWord("=name=" + c.Username); err != nil {
		result.ErrorMsg = fmt.Sprintf("Failed to send username: %v", err)
		return result
	}
	if err := c.sendWord("=password=" + c.Password); err != nil {
		result.ErrorMsg = fmt.Sprintf("Failed to send password: %v", err)
		return result
	}
	if err := c.sendWord(""); err != nil {
		result.ErrorMsg = fmt.Sprintf("Failed to send end: %v", err)
		return result
	}

	response, err := c.readResponse()
	if err != nil {
		result.ErrorMsg = fmt.Sprintf("Failed to read response: %v", err)
		return result
	}

	for _, word := range response {
		if word == "!done" {
			result.APIAuth = true
			result.Success = true
		}
		if strings.HasPrefix(word, "!trap") {
			result.ErrorMsg = "Authentication failed: Invalid username or password"
			return result
		}
		if strings.HasPrefix(word, "=ret=") {
			// Old style login - need challenge response
			challenge := strings.TrimPrefix(word, "=ret=")
			if err := c.challengeLogin(challenge); err != nil {
				result.ErrorMsg = fmt.Sprintf("Challenge login failed: %v", err)
				return result
			}
			result.APIAuth = true
			result.Success = true
		}
	}

	// If authenticated, collect identity and version
	if result.APIAuth {
		if identity, err := c.getIdentity(); err == nil {
			result.RouterInfo["identity"] = identity
		}
		if resources, err := c.Run("/system/resource/print"); err == nil && len(resources) > 0 {
			if v, ok := resources[0]["version"]; ok {
				result.RouterInfo["version"] = v
			}
			if b, ok := resources[0]["board-name"]; ok {
				result.RouterInfo["board"] = b
			}
		}
	}

	return result
}

// Connect establishes connection and authenticates
func (c *Client) Connect() error {
	conn, err := net.DialTimeout("tcp", c.Address, c.timeout)
	if err != nil {
		return fmt.Errorf("cannot connect: %v", err)
	}
	c.conn = conn
	conn.SetDeadline(time.Now().Add(c.timeout))

	c.sendWord("/login")
	c.sendWord("=name=" + c.Username)
	c.sendWord("=password=" + c.Password)
	c.sendWord("")

	response, err := c.readResponse()
	if err != nil {
		return fmt.Errorf("login failed: %v", err)
	}

	for _, word := range response {
		if word == "!done" {
			return nil
		}
		if strings.HasPrefix(word, "=ret=") {
			// Old style login
			challenge := strings.TrimPrefix(word, "=ret=")
			return c.challengeLogin(challenge)
		}
		if strings.HasPrefix(word, "!trap") {
			return fmt.Errorf("authentication failed")
		}
	}
	return nil
}

// challengeLogin performs the old-style MD5 challenge-response login
func (c *Client) challengeLogin(challenge string) error {
	challengeBytes, err := hex.DecodeString(challenge)
	if err != nil {
		return err
	}

	// MD5 hash: 0x00 + password + challenge
	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(c.Password))
	h.Write(challengeBytes)
	response := hex.EncodeToString(h.Sum(nil))

	c.sendWord("/login")
	c.sendWord("=name=" + c.Username)
	c.sendWord("=response=00" + response)
	c.sendWord("")

	resp, err := c.readResponse()
	if err != nil {
		return err
	}

	for _, word := range resp {
		if word == "!done" {
			return nil
		}
		if strings.HasPrefix(word, "!trap") {
			return fmt.Errorf("authentication failed")
		}
	}

	return nil
}

// getIdentity retrieves the router's identity
func (c *Client) getIdentity() (string, error) {
	c.conn.SetDeadline(time.Now().Add(c.timeout))

	c.sendWord("/system/identity/print")
	c.sendWord("")

	response, err := c.readResponse()
	if err != nil {
		return "", err
	}

	for _, word := range response {
		if strings.HasPrefix(word, "=name=") {
			return strings.TrimPrefix(word, "=name="), nil
		}
	}

	return "", fmt.Errorf("identity not found")
}

// encodeLength encodes a word length per the RouterOS API framing
func encodeLength(length int) []byte {
	switch {
	case length < 0x80:
		return []byte{byte(length)}
	case length < 0x4000:
		return []byte{byte((length >> 8) | 0x80), byte(length)}
	case length < 0x200000:
		return []byte{byte((length >> 16) | 0xC0), byte(length >> 8), byte(length)}
	case length < 0x10000000:
		return []byte{byte((length >> 24) | 0xE0), byte(length >> 16), byte(length >> 8), byte(length)}
	default:
		return []byte{0xF0, byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length)}
	}
}

// sendWord sends a word to the RouterOS API
func (c *Client) sendWord(word string) error {
	if _, err := c.conn.Write(encodeLength(len(word))); err != nil {
		return err
	}
	if len(word) > 0 {
		if _, err := c.conn.Write([]byte(word)); err != nil {
			return err
		}
	}
	return nil
}

// readResponse reads a complete response from RouterOS.
// Continues reading until !done is received.
func (c *Client) readResponse() ([]string, error) {
	var words []string
	gotDone := false

	for {
		word, err := c.readWord()
		if err != nil {
			if err == io.EOF {
				break
			}
			return words, err
		}

		// Empty word ends the current sentence, not the response
		if word == "" {
			if gotDone {
				break
			}
			continue
		}

		words = append(words, word)

		if word == "!done" {
			gotDone = true
		}
	}

	return words, nil
}

// readWord reads a single word from the connection
func (c *Client) readWord() (string, error) {
	length, err := c.readLength()
	if err != nil {
		return "", err
	}

	if length == 0 {
		return "", nil
	}

	word := make([]byte, length)
	_, err = io.ReadFull(c.conn, word)
	if err != nil {
		return "", err
	}

	return string(word), nil
}

// readLength reads the length encoding from RouterOS
func (c *Client) readLength() (int, error) {
	b := make([]byte, 1)
	_, err := c.conn.Read(b)
	if err != nil {
		return 0, err
	}

	first := b[0]

	if first < 0x80 {
		return int(first), nil
	} else if first < 0xC0 {
		_, err := c.conn.Read(b)
		if err != nil {
			return 0, err
		}
		return int(first&0x3F)<<8 | int(b[0]), nil
	} else if first < 0xE0 {
		extra := make([]byte, 2)
		_, err := io.ReadFull(c.conn, extra)
		if err != nil {
			return 0, err
		}
		return int(first&0x1F)<<16 | int(extra[0])<<8 | int(extra[1]), nil
	} else if first < 0xF0 {
		extra := make([]byte, 3)
		_, err := io.ReadFull(c.conn, extra)
		if err != nil {
			return 0, err
		}
		return int(first&0x0F)<<24 | int(extra[0])<<16 | int(extra[1])<<8 | int(extra[2]), nil
	} else {
		extra := make([]byte, 4)
		_, err := io.ReadFull(c.conn, extra)
		if err != nil {
			return 0, err
		}
		return int(extra[0])<<24 | int(extra[1])<<16 | int(extra[2])<<8 | int(extra[3]), nil
	}
}

// Close closes the connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Run executes a command with optional argument words and returns the
// parsed reply sentences
func (c *Client) Run(command string, args ...string) ([]map[string]string, error) {
	if c.conn == nil {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	c.conn.SetDeadline(time.Now().Add(c.timeout))

	if err := c.sendWord(command); err != nil {
		return nil, fmt.Errorf("failed to send command: %v", err)
	}
	for _, arg := range args {
		if err := c.sendWord(arg); err != nil {
			return nil, fmt.Errorf("failed to send argument: %v", err)
		}
	}
	if err := c.sendWord(""); err != nil {
		return nil, fmt.Errorf("failed to send end: %v", err)
	}

	response, err := c.readResponse()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	return parseSentences(response)
}

// parseSentences converts reply words into attribute maps, one per !re
func parseSentences(words []string) ([]map[string]string, error) {
	var results []map[string]string
	current := make(map[string]string)
	inTrap := false
	trapMessage := ""

	for _, word := range words {
		switch {
		case word == "!re":
			if len(current) > 0 {
				results = append(results, current)
				current = make(map[string]string)
			}
			inTrap = false
		case word == "!trap":
			inTrap = true
		case word == "!done":
			if len(current) > 0 && !inTrap {
				results = append(results, current)
			}
		case strings.HasPrefix(word, "="):
			parts := strings.SplitN(word[1:], "=", 2)
			if inTrap {
				if parts[0] == "message" && len(parts) == 2 {
					trapMessage = parts[1]
				}
				continue
			}
			if len(parts) == 2 {
				current[parts[0]] = parts[1]
			} else if len(parts) == 1 {
				current[parts[0]] = ""
			}
		}
	}

	if trapMessage != "" {
		return results, fmt.Errorf("router error: %s", trapMessage)
	}
	if inTrap {
		return results, fmt.Errorf("router error")
	}

	return results, nil
}
