package sourcecfg

import (
	"fmt"
	"time"
)

type MYSQL struct {
	SessionVariableValues map[string]string `json:"session_vars" mapstructure:"session_vars"`
	Host                  string            `json:"host" mapstructure:"host"`
	UserName              string            `json:"user_name" mapstructure:"user_name"`
	Password              string            `json:"password" mapstructure:"password"`
	Port                  int               `json:"port" mapstructure:"port"`
	DB                    string            `json:"db" mapstructure:"db"`
	Charset               string            `json:"charset" mapstructure:"charset"`
	ConnectTimeout        time.Duration     `json:"connect_timeout" mapstructure:"connect_timeout"`
	ReadTimeout           time.Duration     `json:"read_timeout" mapstructure:"read_timeout"`
	QueryLogging          bool              `json:"query_log" mapstructure:"query_log"`
}

func (m *MYSQL) GetDSN() string {
	charset := m.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	dsn := fmt.Sprintf(`%s:%s@tcp(%s:%d)/%s?parseTime=false&charset=%s&autocommit=true`,
		m.UserName, m.Password, m.Host, m.Port, m.DB, charset)
	if m.ConnectTimeout > 0 {
		dsn += fmt.Sprintf("&timeout=%s", m.ConnectTimeout)
	}
	if m.ReadTimeout > 0 {
		dsn += fmt.Sprintf("&readTimeout=%s", m.ReadTimeout)
	}
	return dsn
}
