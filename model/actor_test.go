package model

import (
	"context"
	"testing"
)

func TestActor_Validate(t *testing.T) {
	if err := (Actor{ID: "u-1", Role: RoleOptimizer}).Validate(); err != nil {
		t.Errorf("valid actor: %v", err)
	}
	if err := (Actor{Role: RoleOptimizer}).Validate(); err == nil {
		t.Error("actor without ID should fail")
	}
	if err := (Actor{ID: "u-1", Role: "janitor"}).Validate(); err == nil {
		t.Error("actor with unknown role should fail")
	}
}

func TestActorContext(t *testing.T) {
	actor := Actor{ID: "u-1", Role: RoleAdmin}
	ctx := WithActor(context.Background(), actor)

	got, ok := ActorFrom(ctx)
	if !ok || got != actor {
		t.Errorf("ActorFrom = %+v, %v", got, ok)
	}
	if got := MustActor(ctx); got != actor {
		t.Errorf("MustActor = %+v", got)
	}

	if _, ok := ActorFrom(context.Background()); ok {
		t.Error("ActorFrom on empty context should report absence")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustActor on empty context should panic")
		}
	}()
	MustActor(context.Background())
}
