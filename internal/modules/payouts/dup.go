package payouts

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
