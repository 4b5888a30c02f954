package targetcfg

import (
	"fmt"
	"time"
)

type Clickhouse struct {
	DB           string        `json:"db" mapstructure:"db"`
	UserName     string        `json:"user_name" mapstructure:"user_name"`
	Password     string        `json:"password" mapstructure:"password"`
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	Compression  bool          `json:"compression" mapstructure:"compression"`
	QueryLogging bool          `json:"query_log" mapstructure:"query_log"`
}

// Addr : native protocol endpoint
func (c *Clickhouse) Addr() string {
	port := c.Port
	if port == 0 {
		port = 9000
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}
