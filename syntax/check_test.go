// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package syntax_test

import (
	"strings"
	"testing"

	"github.com/grailbio/gradual/db"
	"github.com/grailbio/gradual/errors"
	"github.com/grailbio/gradual/syntax"
	"github.com/grailbio/gradual/types"
)

// check parses and checks one module, with inference and
// exhaustiveness checking on.
func check(t *testing.T, src string) []*errors.Error {
	t.Helper()
	return checkOpts(t, src, syntax.Options{Infer: true, Exhaustive: true})
}

func checkOpts(t *testing.T, src string, opts syntax.Options) []*errors.Error {
	t.Helper()
	p := &syntax.Parser{File: "<test>", Body: []byte(src), Mode: syntax.ParseModule}
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	d := db.New(nil, nil)
	d.Add(p.Module)
	env := types.NewEnv(p.Module.Name, d)
	return syntax.CheckModule(p.Module, env, opts)
}

func noErrors(t *testing.T, src string) {
	t.Helper()
	if diags := check(t, src); len(diags) != 0 {
		t.Errorf("got %d diagnostics, want none: %v", len(diags), diags)
	}
}

func oneError(t *testing.T, src string, kind errors.Kind) *errors.Error {
	t.Helper()
	diags := check(t, src)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if !errors.Is(kind, diags[0]) {
		t.Fatalf("got %v, want kind %v", diags[0], kind)
	}
	return diags[0]
}

func TestCheckWellTyped(t *testing.T) {
	noErrors(t, `
-module(ok_mod).
-export([add/2, negate/1, classify/1]).

-spec add(integer(), integer()) -> integer().
add(A, B) -> A + B.

-spec negate(boolean()) -> boolean().
negate(true) -> false;
negate(false) -> true.

-spec classify(integer()) -> atom().
classify(0) -> zero;
classify(_) -> nonzero.
`)
}

func TestCheckMismatch(t *testing.T) {
	d := oneError(t, `
-module(bad).
-spec f(integer()) -> atom().
f(X) -> X.
`, errors.TypeMismatch)
	if msg := d.Error(); !strings.Contains(msg, "atom()") {
		t.Errorf("diagnostic %q does not mention the expected type", msg)
	}
}

func TestCheckNonExhaustive(t *testing.T) {
	d := oneError(t, `
-module(nonex).
-spec f(boolean()) -> integer().
f(true) -> 1.
`, errors.NonExhaustive)
	if msg := d.Error(); !strings.Contains(msg, "false") {
		t.Errorf("diagnostic %q does not cite the missing value", msg)
	}
}

func TestCheckExhaustiveUnion(t *testing.T) {
	noErrors(t, `
-module(exh).
-spec f(ok | error | {value, integer()}) -> integer().
f(ok) -> 1;
f(error) -> 0;
f({value, N}) -> N.
`)
	oneError(t, `
-module(exh2).
-spec f(ok | error | {value, integer()}) -> integer().
f(ok) -> 1;
f({value, N}) -> N.
`, errors.NonExhaustive)
}

func TestCheckListExhaustive(t *testing.T) {
	noErrors(t, `
-module(listex).
-spec len([atom()]) -> integer().
len([]) -> 0;
len([_ | T]) -> 1 + len(T).
`)
	oneError(t, `
-module(listex2).
-spec hd1([atom()]) -> atom().
hd1([H | _]) -> H.
`, errors.NonExhaustive)
}

func TestCheckUnreachable(t *testing.T) {
	oneError(t, `
-module(unreach).
-spec f(boolean()) -> integer().
f(true) -> 1;
f(false) -> 0;
f(_) -> 2.
`, errors.UnreachableClause)
}

func TestCheckGuardRefinement(t *testing.T) {
	// X + 1 only checks because is_integer narrows X; the fallthrough
	// clause sees what remains.
	noErrors(t, `
-module(guards).
-spec f(integer() | atom()) -> integer().
f(X) when is_integer(X) -> X + 1;
f(_) -> 0.
`)
	oneError(t, `
-module(guards2).
-spec f(atom()) -> integer().
f(X) when is_atom(X) -> X + 1.
`, errors.TypeMismatch)
}

func TestCheckComparisonGuard(t *testing.T) {
	noErrors(t, `
-module(cmp).
-spec f(1..10) -> ok | big.
f(N) when N =< 5 -> ok;
f(_) -> big.
`)
}

func TestCheckRepeatedVar(t *testing.T) {
	noErrors(t, `
-module(rep).
-spec eq(integer(), integer()) -> boolean().
eq(X, X) -> true;
eq(_, _) -> false.
`)
	// Occurrences with disjoint types can never be equal.
	oneError(t, `
-module(rep2).
-spec f({ok, 1..5}) -> boolean().
f({X, X}) -> true;
f(_) -> false.
`, errors.TypeMismatch)
}

func TestCheckArityMismatch(t *testing.T) {
	oneError(t, `
-module(arity).
-export([f/1]).
-spec f(fun((integer()) -> integer())) -> integer().
f(F) -> F(1, 2).
`, errors.ArityMismatch)
}

func TestCheckUndefined(t *testing.T) {
	oneError(t, `
-module(undef).
f() -> missing(1).
`, errors.UndefinedReference)
	oneError(t, `
-module(undef2).
f() -> X.
`, errors.UndefinedReference)
	oneError(t, `
-module(undef3).
f() -> #nope{}.
`, errors.UndefinedReference)
}

func TestCheckSpecForUndefinedFunction(t *testing.T) {
	oneError(t, `
-module(badspec).
-spec ghost(integer()) -> integer().
f() -> ok.
`, errors.BadTypeAnnotation)
}

func TestCheckIntersectionSpec(t *testing.T) {
	noErrors(t, `
-module(inter).
-spec f(integer()) -> integer();
       (atom()) -> atom().
f(X) -> X.
`)
	// The function must satisfy every spec clause.
	oneError(t, `
-module(inter2).
-spec f(integer()) -> integer();
       (atom()) -> integer().
f(X) -> X.
`, errors.TypeMismatch)
}

func TestCheckIntersectionCall(t *testing.T) {
	// At a call site the first matching clause decides the result.
	noErrors(t, `
-module(intercall).
-spec conv(integer()) -> integer();
          (atom()) -> atom().
conv(X) -> X.

-spec use() -> atom().
use() -> conv(ok).
`)
}

func TestCheckPolymorphicSpec(t *testing.T) {
	noErrors(t, `
-module(poly).
-spec id(A) -> A.
id(X) -> X.

-spec use(integer()) -> integer().
use(N) -> id(N).
`)
	noErrors(t, `
-module(poly2).
-spec rev([integer()]) -> [integer()].
rev(L) -> lists:reverse(L).
`)
}

func TestCheckBoundedSpec(t *testing.T) {
	noErrors(t, `
-module(bounded).
-spec id(A) -> A when A :: integer().
id(X) -> X + 0.
`)
	oneError(t, `
-module(bounded2).
-spec id(A) -> A when A :: atom().
id(X) -> X + 0.
`, errors.TypeMismatch)
}

func TestCheckUserTypes(t *testing.T) {
	noErrors(t, `
-module(usert).
-type result() :: {ok, integer()} | error.

-spec get(result()) -> integer().
get({ok, N}) -> N;
get(error) -> 0.
`)
}

func TestCheckRecursiveType(t *testing.T) {
	noErrors(t, `
-module(rec).
-type tree() :: leaf | {node, tree(), tree()}.

-spec size(tree()) -> integer().
size(leaf) -> 1;
size({node, L, R}) -> size(L) + size(R).
`)
}

func TestCheckRecords(t *testing.T) {
	noErrors(t, `
-module(recs).
-record(point, {x = 0 :: integer(), y = 0 :: integer()}).

-spec make(integer(), integer()) -> #point{}.
make(X, Y) -> #point{x = X, y = Y}.

-spec getx(#point{}) -> integer().
getx(#point{x = X}) -> X.

-spec shift(#point{}) -> #point{}.
shift(P) -> P#point{x = P#point.x + 1}.
`)
	oneError(t, `
-module(recs2).
-record(point, {x = 0 :: integer()}).
f() -> #point{x = not_an_integer}.
`, errors.TypeMismatch)
}

func TestCheckMaps(t *testing.T) {
	noErrors(t, `
-module(maps_mod).
-spec get(#{a := integer(), b => atom()}) -> integer().
get(#{a := N}) -> N.
`)
	oneError(t, `
-module(maps2).
-spec get(#{a := integer()}) -> integer().
get(#{b := N}) -> N.
`, errors.TypeMismatch)
}

func TestCheckCase(t *testing.T) {
	noErrors(t, `
-module(casem).
-spec f(boolean()) -> 0..1.
f(B) ->
    case B of
        true -> 1;
        false -> 0
    end.
`)
	oneError(t, `
-module(casem2).
-spec f(boolean()) -> integer().
f(B) ->
    case B of
        true -> 1
    end.
`, errors.NonExhaustive)
}

func TestCheckAnyIsPermissive(t *testing.T) {
	// Unspecced functions check at any(); dynamic values flow both
	// ways without complaint.
	noErrors(t, `
-module(dyn).
f(X) -> X + 1.

-spec g(integer()) -> integer().
g(N) -> h(N).

h(X) -> X.
`)
}

func TestCheckFunExpr(t *testing.T) {
	noErrors(t, `
-module(funs).
-spec apply_to(fun((integer()) -> integer()), integer()) -> integer().
apply_to(F, N) -> F(N).

-spec use() -> integer().
use() -> apply_to(fun(X) -> X + 1 end, 41).

-spec ref() -> fun((integer()) -> integer()).
ref() -> fun inc/1.

-spec inc(integer()) -> integer().
inc(N) -> N + 1.
`)
}

func TestCheckStopOnFirstError(t *testing.T) {
	src := `
-module(multi).
-spec f(integer()) -> atom().
f(X) -> X.
-spec g(integer()) -> atom().
g(X) -> X.
`
	diags := checkOpts(t, src, syntax.Options{Infer: true})
	if len(diags) != 2 {
		t.Errorf("got %d diagnostics, want 2: %v", len(diags), diags)
	}
	diags = checkOpts(t, src, syntax.Options{Infer: true, StopOnFirstError: true})
	if len(diags) != 1 {
		t.Errorf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
}

func TestCheckNoInferLiterals(t *testing.T) {
	// With inference off, literal types are not propagated, so a
	// mismatched literal body passes.
	src := `
-module(noinfer).
-spec f() -> atom().
f() -> 42.
`
	if diags := checkOpts(t, src, syntax.Options{}); len(diags) != 0 {
		t.Errorf("got %v, want no diagnostics", diags)
	}
	if diags := checkOpts(t, src, syntax.Options{Infer: true}); len(diags) != 1 {
		t.Errorf("got %v, want one diagnostic", diags)
	}
}

func TestCheckIllegalPattern(t *testing.T) {
	oneError(t, `
-module(illegal).
f(X) ->
    case X of
        g() -> ok;
        _ -> no
    end.
g() -> ok.
`, errors.IllegalPattern)
}

func TestCheckBinaries(t *testing.T) {
	noErrors(t, `
-module(bins).
-spec pack(integer(), binary()) -> binary().
pack(N, Rest) -> <<N:16, Rest/binary>>.

-spec unpack(binary()) -> integer().
unpack(<<N:16, _/binary>>) -> N;
unpack(_) -> 0.
`)
	oneError(t, `
-module(bins2).
-spec pack(atom()) -> binary().
pack(A) -> <<A:8>>.
`, errors.TypeMismatch)
}

func TestCheckStringsAndAppend(t *testing.T) {
	noErrors(t, `
-module(strs).
-spec greet([char()]) -> [char()].
greet(Name) -> "hello, " ++ Name.

-spec isabc([char()]) -> boolean().
isabc("abc") -> true;
isabc(_) -> false.
`)
}

func TestCheckReceive(t *testing.T) {
	noErrors(t, `
-module(recv).
-spec wait() -> ok | timeout.
wait() ->
    receive
        done -> ok
    after 1000 ->
        timeout
    end.
`)
	oneError(t, `
-module(recv2).
wait() ->
    receive
        done -> ok
    after foo ->
        timeout
    end.
`, errors.TypeMismatch)
}

func TestCheckSendAndSequence(t *testing.T) {
	noErrors(t, `
-module(send).
-spec notify(pid()) -> done.
notify(Pid) ->
    Pid ! {event, 1},
    done.
`)
}

func TestCheckListComprehension(t *testing.T) {
	noErrors(t, `
-module(lc).
-spec squares([integer()]) -> [integer()].
squares(L) -> [X * X || X <- L, X > 0].
`)
}

func TestCheckTry(t *testing.T) {
	noErrors(t, `
-module(tries).
-spec safe(fun(() -> integer())) -> integer().
safe(F) ->
    try F() of
        N -> N
    catch
        throw:_ -> 0;
        error:_:_ -> -1
    end.
`)
}

func TestCheckUnionLimit(t *testing.T) {
	// A tiny union limit widens big unions to any() instead of
	// tracking every alternative.
	src := `
-module(lim).
-spec f(a | b | c | d) -> integer().
f(a) -> 1;
f(_) -> 2.
`
	if diags := checkOpts(t, src, syntax.Options{Infer: true, UnionLimit: 2}); len(diags) != 0 {
		t.Errorf("got %v, want no diagnostics", diags)
	}
}
