package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

// 非正经验是纯空操作：只读查询，不开事务，不写任何行
func TestAddExperience_NonPositiveIsNoOp(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewProgressionService(gdb)

	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =").
		WillReturnRows(accountRows(7, 0, 0))

	leveledUp, level, err := svc.AddExperience(context.Background(), 7, 0)

	assert.NoError(t, err)
	assert.False(t, leveledUp)
	assert.Equal(t, int64(1), level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 账户不存在时空操作也不建行，返回默认1级
func TestAddExperience_NonPositiveDoesNotCreateAccount(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewProgressionService(gdb)

	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	leveledUp, level, err := svc.AddExperience(context.Background(), 7, -5)

	assert.NoError(t, err)
	assert.False(t, leveledUp)
	assert.Equal(t, int64(1), level)
	assert.NoError(t, mock.ExpectationsWereMet())
}
