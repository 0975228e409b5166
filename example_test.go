package formdraft_test

import (
	"context"
	"fmt"

	"github.com/aretw0/formdraft/pkg/adapters/memory"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/stepper"
)

func Example() {
	ctx := context.Background()
	form := &domain.Form{
		ID: "add_course",
		Steps: []domain.Step{
			{Fields: []domain.Field{{Name: "title", Rules: []domain.Rule{domain.Required("Title is required")}}}},
			{Fields: []domain.Field{{Name: "price", Type: domain.FieldNumber, Rules: []domain.Rule{domain.Min(0, "Price cannot be negative")}}}},
		},
	}

	store := draft.New(memory.NewStore())
	ctrl := stepper.New(form, store)

	res, _ := ctrl.Advance(ctx, form.ID, 1, domain.Draft{"title": ""})
	fmt.Println(res.Step, res.Errors["title"])

	res, _ = ctrl.Advance(ctx, form.ID, 1, domain.Draft{"title": "Go 101"})
	fmt.Println(res.Step)

	snap := store.LoadSnapshot(ctx, form.ID)
	fmt.Println(snap.Step, snap.Values["title"])

	// Output:
	// 1 Title is required
	// 2
	// 2 Go 101
}

func Example_submit() {
	ctx := context.Background()
	form := &domain.Form{
		ID: "create_coupon",
		Steps: []domain.Step{
			{Fields: []domain.Field{{Name: "code", Rules: []domain.Rule{domain.Required(""), domain.Pattern(`[A-Z0-9]{4,12}`, "Invalid code")}}}},
		},
	}

	store := draft.New(memory.NewStore())
	ctrl := stepper.New(form, store)

	_, err := ctrl.Submit(ctx, form.ID, domain.Draft{"code": "spring"}, func(ctx context.Context, values domain.Draft) error {
		return nil
	})
	fmt.Println(err)

	_, err = ctrl.Submit(ctx, form.ID, domain.Draft{"code": "SPRING24"}, func(ctx context.Context, values domain.Draft) error {
		fmt.Println("delivered", values["code"])
		return nil
	})
	fmt.Println(err, len(store.Load(ctx, form.ID)))

	// Output:
	// form 'create_coupon' step 1 has invalid fields: code
	// delivered SPRING24
	// <nil> 0
}
