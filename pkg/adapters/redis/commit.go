package redis

import (
	"strconv"

	"github.com/aretw0/stacktester/pkg/adapters/kv"
	backend "github.com/redis/go-redis/v9"
)

// commitScript validates the read set and applies the writes atomically.
// KEYS: data, index, ver, version.
// ARGV: n, n pairs of (key, observed per-key version), observed global version
// (empty when no range was read), then triples of (op, key, end-or-value).
// Returns 0 on conflict, 1 otherwise.
var commitScript = backend.NewScript(`
local n = tonumber(ARGV[1])
local i = 2
for j = 1, n do
	local cur = redis.call('HGET', KEYS[3], ARGV[i])
	if cur == false then cur = '0' end
	if cur ~= ARGV[i + 1] then return 0 end
	i = i + 2
end
local rv = ARGV[i]
i = i + 1
if rv ~= '' then
	local g = redis.call('GET', KEYS[4])
	if g == false then g = '0' end
	if g ~= rv then return 0 end
end
local wrote = false
local function drop(k)
	redis.call('HDEL', KEYS[1], k)
	redis.call('ZREM', KEYS[2], k)
	redis.call('HINCRBY', KEYS[3], k, 1)
end
while i <= #ARGV do
	local op = ARGV[i]
	if op == 'set' then
		redis.call('HSET', KEYS[1], ARGV[i + 1], ARGV[i + 2])
		redis.call('ZADD', KEYS[2], 0, ARGV[i + 1])
		redis.call('HINCRBY', KEYS[3], ARGV[i + 1], 1)
	elseif op == 'clear' then
		if redis.call('HEXISTS', KEYS[1], ARGV[i + 1]) == 1 then
			drop(ARGV[i + 1])
		end
	elseif op == 'clear_range' then
		local ks = redis.call('ZRANGEBYLEX', KEYS[2], '[' .. ARGV[i + 1], '(' .. ARGV[i + 2])
		for _, k in ipairs(ks) do
			drop(k)
		end
	end
	wrote = true
	i = i + 3
end
if wrote then
	redis.call('INCR', KEYS[4])
end
return 1
`)

func commitArgs(pointReads map[string]string, rangeVersion string, ops []kv.Op) []any {
	args := make([]any, 0, 2+2*len(pointReads)+3*len(ops))
	args = append(args, strconv.Itoa(len(pointReads)))
	for k, v := range pointReads {
		args = append(args, k, v)
	}
	args = append(args, rangeVersion)
	for _, op := range ops {
		switch op.Kind {
		case kv.OpSet:
			args = append(args, "set", string(op.Key), string(op.Value))
		case kv.OpClear:
			args = append(args, "clear", string(op.Key), "")
		case kv.OpClearRange:
			if string(op.Key) >= string(op.End) {
				continue
			}
			args = append(args, "clear_range", string(op.Key), string(op.End))
		}
	}
	return args
}
