package service

import (
	"context"
	"testing"

	"reciclo/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 接受路径：先锁交换行，再按 user_id 升序锁两个账户行，
// 与取消/超时路径的加锁顺序一致（期望按声明顺序匹配，顺序错即失败）
func TestRespondToExchange_AcceptLockOrderAndTransfer(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewExchangeService(gdb, newTestRedis(t), testConfig())

	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =").
		WillReturnRows(pendingExchangeRows(9))

	mock.ExpectBegin()
	// 交换行在账户行之前加锁
	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =(.+)FOR UPDATE").
		WillReturnRows(pendingExchangeRows(9))
	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =(.+)FOR UPDATE").
		WillReturnRows(accountRows(1, 0, 0))
	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =(.+)FOR UPDATE").
		WillReturnRows(accountRows(2, 0, 8))
	mock.ExpectExec("UPDATE `exchange_request` SET").
		WithArgs("ACCEPTED", sqlmock.AnyArg(), int64(9), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 接收方付出5声望币、发起方收到5声望币、托管的10回收币转给接收方
	mock.ExpectExec("UPDATE `account` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `account` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `account` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	// 两个非零方向各一条流水
	mock.ExpectExec("INSERT INTO `coin_transaction`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `coin_transaction`").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO `outbox_message`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := svc.RespondToExchange(context.Background(), 9, 2, true)

	require.NoError(t, err)
	assert.Equal(t, model.ExchangeStatusAccepted, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 接受时接收方余额不足：拒绝+退托管正常提交，调用方拿到余额不足错误
func TestRespondToExchange_AutoRejectWhenReceiverShort(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewExchangeService(gdb, newTestRedis(t), testConfig())

	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =").
		WillReturnRows(pendingExchangeRows(9))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =(.+)FOR UPDATE").
		WillReturnRows(pendingExchangeRows(9))
	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =(.+)FOR UPDATE").
		WillReturnRows(accountRows(1, 0, 0))
	// 接收方只有3声望币，索要的是5
	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =(.+)FOR UPDATE").
		WillReturnRows(accountRows(2, 0, 3))
	mock.ExpectExec("UPDATE `exchange_request` SET").
		WithArgs("REJECTED", sqlmock.AnyArg(), int64(9), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 退还发起方托管的10回收币
	mock.ExpectExec("UPDATE `account` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	// 自动拒绝走正常提交，不回滚
	mock.ExpectCommit()

	result, err := svc.RespondToExchange(context.Background(), 9, 2, true)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrReceiverBalanceNotEnough)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 拒绝路径：改状态+退托管，一个事务
func TestRespondToExchange_Reject(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewExchangeService(gdb, newTestRedis(t), testConfig())

	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =").
		WillReturnRows(pendingExchangeRows(9))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `exchange_request` SET").
		WithArgs("REJECTED", sqlmock.AnyArg(), int64(9), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =(.+)FOR UPDATE").
		WillReturnRows(accountRows(1, 0, 0))
	mock.ExpectExec("UPDATE `account` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.RespondToExchange(context.Background(), 9, 2, false)

	require.NoError(t, err)
	assert.Equal(t, model.ExchangeStatusRejected, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 发起方取消：CAS 流转后退还托管
func TestCancelExchange_RefundsEscrow(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewExchangeService(gdb, newTestRedis(t), testConfig())

	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =").
		WillReturnRows(pendingExchangeRows(9))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `exchange_request` SET").
		WithArgs("CANCELLED", sqlmock.AnyArg(), int64(9), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `account` WHERE user_id =(.+)FOR UPDATE").
		WillReturnRows(accountRows(1, 0, 0))
	mock.ExpectExec("UPDATE `account` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.CancelExchange(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelExchange_NotRequester(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewExchangeService(gdb, newTestRedis(t), testConfig())

	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =").
		WillReturnRows(pendingExchangeRows(9))

	err := svc.CancelExchange(context.Background(), 9, 3)

	assert.ErrorIs(t, err, ErrNotRequester)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondToExchange_NotReceiver(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewExchangeService(gdb, newTestRedis(t), testConfig())

	mock.ExpectQuery("SELECT (.+) FROM `exchange_request` WHERE id =").
		WillReturnRows(pendingExchangeRows(9))

	_, err := svc.RespondToExchange(context.Background(), 9, 3, true)

	assert.ErrorIs(t, err, ErrNotReceiver)
	assert.NoError(t, mock.ExpectationsWereMet())
}
