// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/internal/auth/postgres"
)

func newAccount(email string, now time.Time) *auth.Account {
	return &auth.Account{
		ID:           ulid.Make(),
		FullName:     "Ada Lovelace",
		Email:        &email,
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("AccountRepository", func() {
	var (
		repo *postgres.AccountRepository
		now  time.Time
	)

	BeforeEach(func(ctx SpecContext) {
		truncate(ctx)
		repo = postgres.NewAccountRepository(pool)
		now = time.Now().UTC().Truncate(time.Microsecond)
	})

	It("round-trips an account", func(ctx SpecContext) {
		account := newAccount("ada@example.com", now)
		Expect(repo.Create(ctx, account)).To(Succeed())

		got, err := repo.GetByEmail(ctx, "ada@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(account.ID))
		Expect(got.FullName).To(Equal("Ada Lovelace"))
		Expect(got.Phone).To(BeNil())
		Expect(got.CreatedAt.Equal(now)).To(BeTrue())

		byID, err := repo.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(*byID.Email).To(Equal("ada@example.com"))
	})

	It("rejects a second account with the same email", func(ctx SpecContext) {
		Expect(repo.Create(ctx, newAccount("ada@example.com", now))).To(Succeed())

		err := repo.Create(ctx, newAccount("ada@example.com", now))
		Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
	})

	It("reports unknown accounts as not found", func(ctx SpecContext) {
		_, err := repo.GetByPhone(ctx, "+15550100")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

		err = repo.SetVerified(ctx, ulid.Make(), now)
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})

	It("counts failures in place and locks at the threshold", func(ctx SpecContext) {
		account := newAccount("ada@example.com", now)
		Expect(repo.Create(ctx, account)).To(Succeed())
		lockUntil := now.Add(auth.LockoutDuration)

		var wg sync.WaitGroup
		for i := 0; i < auth.LockoutThreshold; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, _, err := repo.RecordLoginFailure(ctx, account.ID, auth.LockoutThreshold, lockUntil, now)
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.FailedAttempts).To(Equal(auth.LockoutThreshold))
		Expect(got.LockedUntil).NotTo(BeNil())
		Expect(got.LockedUntil.Equal(lockUntil)).To(BeTrue())

		Expect(repo.ResetLoginFailures(ctx, account.ID, now)).To(Succeed())
		got, err = repo.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.FailedAttempts).To(BeZero())
		Expect(got.LockedUntil).To(BeNil())
	})

	It("replaces a password hash only while it is unchanged", func(ctx SpecContext) {
		account := newAccount("ada@example.com", now)
		Expect(repo.Create(ctx, account)).To(Succeed())
		Expect(repo.UpdatePasswordHash(ctx, account.ID, "reset-hash", now)).To(Succeed())

		swapped, err := repo.ReplacePasswordHash(ctx, account.ID, account.PasswordHash, "rehashed", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(swapped).To(BeFalse())

		got, err := repo.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("reset-hash"))

		swapped, err = repo.ReplacePasswordHash(ctx, account.ID, "reset-hash", "rehashed", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(swapped).To(BeTrue())
	})

	Describe("reset credentials", func() {
		var account *auth.Account

		BeforeEach(func(ctx SpecContext) {
			account = newAccount("ada@example.com", now)
			Expect(repo.Create(ctx, account)).To(Succeed())
			Expect(repo.SetResetCredential(ctx, account.ID, "hash-1", now.Add(time.Hour), now)).To(Succeed())
		})

		It("finds the account by credential hash", func(ctx SpecContext) {
			got, err := repo.GetByResetTokenHash(ctx, "hash-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(account.ID))
		})

		It("replaces an outstanding credential", func(ctx SpecContext) {
			Expect(repo.SetResetCredential(ctx, account.ID, "hash-2", now.Add(time.Hour), now)).To(Succeed())

			_, err := repo.GetByResetTokenHash(ctx, "hash-1")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("does not consume an expired credential", func(ctx SpecContext) {
			ok, err := repo.ConsumeResetCredential(ctx, account.ID, "hash-1", "new-hash", now.Add(2*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("clears only a matching credential", func(ctx SpecContext) {
			ok, err := repo.ClearResetCredential(ctx, account.ID, "other", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = repo.ClearResetCredential(ctx, account.ID, "hash-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("lets exactly one concurrent reset succeed", func(ctx SpecContext) {
			const racers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := range racers {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					ok, err := repo.ConsumeResetCredential(context.Background(), account.ID, "hash-1",
						"new-hash-"+string(rune('a'+i)), now.Add(time.Minute))
					Expect(err).NotTo(HaveOccurred())
					if ok {
						mu.Lock()
						successes++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			Expect(successes).To(Equal(1))

			got, err := repo.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ResetTokenHash).To(BeNil())
			Expect(got.ResetExpiresAt).To(BeNil())
			Expect(got.PasswordHash).To(HavePrefix("new-hash-"))
		})
	})
})

var _ = Describe("SessionRepository", func() {
	var (
		accounts *postgres.AccountRepository
		sessions *postgres.SessionRepository
		account  *auth.Account
		now      time.Time
	)

	newSession := func(hash string, expires time.Time) *auth.Session {
		return &auth.Session{
			ID:        ulid.Make(),
			AccountID: account.ID,
			TokenHash: hash,
			ExpiresAt: expires,
			Active:    true,
			CreatedAt: now,
		}
	}

	BeforeEach(func(ctx SpecContext) {
		truncate(ctx)
		now = time.Now().UTC().Truncate(time.Microsecond)
		accounts = postgres.NewAccountRepository(pool)
		sessions = postgres.NewSessionRepository(pool)
		account = newAccount("ada@example.com", now)
		Expect(accounts.Create(ctx, account)).To(Succeed())
	})

	It("stores and deactivates a session", func(ctx SpecContext) {
		Expect(sessions.Create(ctx, newSession("tok-1", now.Add(time.Hour)))).To(Succeed())

		got, err := sessions.GetByTokenHash(ctx, "tok-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.AccountID).To(Equal(account.ID))
		Expect(got.Active).To(BeTrue())

		ok, err := sessions.Deactivate(ctx, "tok-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		got, err = sessions.GetByTokenHash(ctx, "tok-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Active).To(BeFalse())
	})

	It("rejects a duplicate token hash", func(ctx SpecContext) {
		Expect(sessions.Create(ctx, newSession("tok-1", now.Add(time.Hour)))).To(Succeed())
		err := sessions.Create(ctx, newSession("tok-1", now.Add(time.Hour)))
		Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
	})

	It("deactivates every session of an account", func(ctx SpecContext) {
		Expect(sessions.Create(ctx, newSession("tok-1", now.Add(time.Hour)))).To(Succeed())
		Expect(sessions.Create(ctx, newSession("tok-2", now.Add(time.Hour)))).To(Succeed())

		n, err := sessions.DeactivateByAccount(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		n, err = sessions.DeactivateByAccount(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("prunes sessions that expired before the cutoff", func(ctx SpecContext) {
		Expect(sessions.Create(ctx, newSession("old", now.Add(time.Minute)))).To(Succeed())
		Expect(sessions.Create(ctx, newSession("new", now.Add(48*time.Hour)))).To(Succeed())

		n, err := sessions.DeleteExpiredBefore(ctx, now.Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		_, err = sessions.GetByTokenHash(ctx, "old")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})

	It("drops sessions when their account is deleted", func(ctx SpecContext) {
		Expect(sessions.Create(ctx, newSession("tok-1", now.Add(time.Hour)))).To(Succeed())
		_, err := pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", account.ID.String())
		Expect(err).NotTo(HaveOccurred())

		_, err = sessions.GetByTokenHash(ctx, "tok-1")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})
})
