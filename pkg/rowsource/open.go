package rowsource

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/config"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
)

// Open connects to the configured database. The returned closer releases
// the connection pool.
func Open(cfg config.SourceConfig) (dictionary.RowSource, io.Closer, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
		}
		return NewSQL(db, SQLite), db, nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return NewGorm(db, MySQL), sqlDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
	}
}
