package repositories

import (
	"strconv"

	"blogapi/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerUserRepository implements UserRepository using BadgerDB. Usernames
// and emails are unique case-insensitively through lookup keys.
type BadgerUserRepository struct {
	db  *badger.DB
	ids *Sequences
}

func NewBadgerUserRepository(db *badger.DB, ids *Sequences) *BadgerUserRepository {
	return &BadgerUserRepository{db: db, ids: ids}
}

func (r *BadgerUserRepository) Create(user *models.User) error {
	return translate(r.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{usernameKey(user.Username), emailKey(user.Email)} {
			taken, err := exists(txn, key)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicate
			}
		}

		id, err := r.ids.Next(UserSeqKey)
		if err != nil {
			return err
		}
		user.ID = id

		if err := putEntity(txn, userKey(user.ID), user); err != nil {
			return err
		}
		ref := []byte(strconv.Itoa(user.ID))
		if err := txn.Set(usernameKey(user.Username), ref); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), ref)
	}))
}

func (r *BadgerUserRepository) GetByID(id int) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *BadgerUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var id int
		err = item.Value(func(val []byte) error {
			id, err = strconv.Atoi(string(val))
			return err
		})
		if err != nil {
			return err
		}
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
