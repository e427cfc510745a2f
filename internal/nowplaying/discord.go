package nowplaying

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Discord IPC opcodes.
const (
	opHandshake = 0
	opFrame     = 1
	opClose     = 2
)

// Activity is a Discord Rich Presence activity.
type Activity struct {
	Type       int         `json:"type,omitempty"`
	Name       string      `json:"name,omitempty"`
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Instance   bool        `json:"instance"`
}

type Timestamps struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type ipcClient struct {
	conn net.Conn
}

func ipcConnect(appID string) (*ipcClient, error) {
	conn, err := dialDiscord()
	if err != nil {
		return nil, fmt.Errorf("dial discord socket: %w", err)
	}
	c := &ipcClient{conn: conn}

	handshake, _ := json.Marshal(map[string]any{
		"v":         1,
		"client_id": appID,
	})
	if err := c.writeFrame(opHandshake, handshake); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake write: %w", err)
	}

	if _, _, err := c.readFrame(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}
	return c, nil
}

// dialDiscord tries discord-ipc-0..9 in the runtime and temp directories.
func dialDiscord() (net.Conn, error) {
	var dirs []string
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		dirs = append(dirs, d)
	}
	dirs = append(dirs, os.TempDir())

	var lastErr error
	for _, dir := range dirs {
		for i := 0; i <= 9; i++ {
			path := filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i))
			conn, err := net.DialTimeout("unix", path, time.Second)
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
	}
	return nil, fmt.Errorf("no discord socket found: %w", lastErr)
}

func (c *ipcClient) SetActivity(a Activity) error {
	args := map[string]any{"pid": os.Getpid()}
	if a != (Activity{}) {
		args["activity"] = a
	}
	payload, err := json.Marshal(map[string]any{
		"cmd":   "SET_ACTIVITY",
		"args":  args,
		"nonce": uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	if err := c.writeFrame(opFrame, payload); err != nil {
		return err
	}

	_, data, err := c.readFrame()
	if err != nil {
		return err
	}

	var resp struct {
		Evt  string `json:"evt"`
		Data struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Evt == "ERROR" {
		return fmt.Errorf("discord error %d: %s", resp.Data.Code, resp.Data.Message)
	}
	return nil
}

func (c *ipcClient) Close() error {
	_ = c.writeFrame(opClose, []byte("{}"))
	return c.conn.Close()
}

// writeFrame sends a Discord IPC frame: [opcode LE u32][length LE u32][payload].
func (c *ipcClient) writeFrame(opcode uint32, payload []byte) error {
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], opcode)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	_, err := c.conn.Write(frame)
	return err
}

// readFrame reads one frame, sized by its header.
func (c *ipcClient) readFrame() (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return 0, nil, err
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}
