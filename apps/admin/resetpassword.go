package main

import (
	"context"
	"time"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

// resetPassword sets a new password on an existing user.User
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
