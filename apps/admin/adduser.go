package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, first, last, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.FirstName = core.CleanString(first)
	usr.LastName = core.CleanString(last)
	usr.IsAdmin = isAdmin
	usr.IsActive = true
	usr.EmailConfirmed = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
