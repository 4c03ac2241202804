package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3306, User: "root", Password: "secret", DBName: "ledger"}
	assert.Equal(t, "root:secret@tcp(db:3306)/ledger?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Host: "db", Port: 3306, DBName: "ledger"}
	assert.NoError(t, valid.Validate())

	noHost := valid
	noHost.Host = ""
	assert.Error(t, noHost.Validate())

	badPort := valid
	badPort.Port = 0
	assert.Error(t, badPort.Validate())

	noDB := valid
	noDB.DBName = ""
	assert.Error(t, noDB.Validate())
}
