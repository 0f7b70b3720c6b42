package model

import (
	"sync"
	"testing"
)

func TestNewWorldObject(t *testing.T) {
	loc := NewLocation(100, 200, 300, 1000)
	obj := NewWorldObject(12345, "TestObject", loc)

	if obj == nil {
		t.Fatal("NewWorldObject() returned nil")
	}

	if obj.ObjectID() != 12345 {
		t.Errorf("ObjectID() = %d, want 12345", obj.ObjectID())
	}

	if obj.Name() != "TestObject" {
		t.Errorf("Name() = %q, want %q", obj.Name(), "TestObject")
	}

	gotLoc := obj.Location()
	if gotLoc != loc {
		t.Errorf("Location() = %+v, want %+v", gotLoc, loc)
	}
}

func TestWorldObject_ObjectID_Immutable(t *testing.T) {
	obj := NewWorldObject(100, "Test", NewLocation(0, 0, 0, 0))

	// ObjectID должен быть immutable — нет сеттера
	id1 := obj.ObjectID()
	id2 := obj.ObjectID()

	if id1 != id2 {
		t.Errorf("ObjectID changed: first=%d, second=%d", id1, id2)
	}

	if id1 != 100 {
		t.Errorf("ObjectID() = %d, want 100", id1)
	}
}

func TestWorldObject_Name(t *testing.T) {
	obj := NewWorldObject(1, "InitialName", NewLocation(0, 0, 0, 0))

	if obj.Name() != "InitialName" {
		t.Errorf("Name() = %q, want %q", obj.Name(), "InitialName")
	}

	obj.SetName("UpdatedName")
	if obj.Name() != "UpdatedName" {
		t.Errorf("After SetName, Name() = %q, want %q", obj.Name(), "UpdatedName")
	}

	obj.SetName("")
	if obj.Name() != "" {
		t.Errorf("After SetName empty, Name() = %q, want empty", obj.Name())
	}
}

func TestWorldObject_Location(t *testing.T) {
	initialLoc := NewLocation(100, 200, 300, 1000)
	obj := NewWorldObject(1, "Test", initialLoc)

	gotLoc := obj.Location()
	if gotLoc != initialLoc {
		t.Errorf("Location() = %+v, want %+v", gotLoc, initialLoc)
	}

	newLoc := NewLocation(400, 500, 600, 2000)
	obj.SetLocation(newLoc)

	gotLoc = obj.Location()
	if gotLoc != newLoc {
		t.Errorf("After SetLocation, Location() = %+v, want %+v", gotLoc, newLoc)
	}

	// Location() возвращает копию (value type): mutating the returned
	// value must not affect the object.
	returned := obj.Location()
	returned.X = 999

	if obj.Location().X == 999 {
		t.Error("Location() did not return a copy - original was mutated")
	}
}

func TestWorldObject_ConcurrentReads(t *testing.T) {
	obj := NewWorldObject(1, "Test", NewLocation(100, 200, 300, 1000))

	const numReaders = 100
	var wg sync.WaitGroup
	wg.Add(numReaders)

	for range numReaders {
		go func() {
			defer wg.Done()

			for range 1000 {
				_ = obj.ObjectID()
				_ = obj.Name()
				_ = obj.Location()
			}
		}()
	}

	wg.Wait()
}

func TestWorldObject_ConcurrentWrites(t *testing.T) {
	obj := NewWorldObject(1, "Test", NewLocation(0, 0, 0, 0))

	const numWriters = 50
	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := range numWriters {
		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				obj.SetName("Writer" + string(rune('A'+id)) + string(rune('0'+j%10)))
			}
		}(i)
	}

	wg.Wait()

	name := obj.Name()
	if len(name) == 0 {
		t.Error("Name is empty after concurrent writes")
	}
}

func TestWorldObject_ConcurrentLocationUpdates(t *testing.T) {
	obj := NewWorldObject(1, "Test", NewLocation(0, 0, 0, 0))

	const numUpdaters = 50
	var wg sync.WaitGroup
	wg.Add(numUpdaters)

	for i := range numUpdaters {
		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				x := int32(id*1000 + j)
				y := int32(id*2000 + j)
				z := int32(id*3000 + j)
				heading := uint16(id*100 + j)
				obj.SetLocation(NewLocation(x, y, z, heading))
			}
		}(i)
	}

	wg.Wait()

	loc := obj.Location()
	if loc.X < 0 || loc.Y < 0 || loc.Z < 0 {
		t.Errorf("Invalid location after concurrent updates: %+v", loc)
	}
}

func TestWorldObject_MixedReadWrite(t *testing.T) {
	obj := NewWorldObject(1, "Test", NewLocation(100, 200, 300, 1000))

	const numReaders = 50
	const numWriters = 10
	var wg sync.WaitGroup
	wg.Add(numReaders + numWriters)

	for range numReaders {
		go func() {
			defer wg.Done()

			for range 500 {
				_ = obj.Name()
				_ = obj.Location()
			}
		}()
	}

	for i := range numWriters {
		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				obj.SetName("Writer" + string(rune('A'+id)))
				obj.SetLocation(NewLocation(int32(id*100+j), int32(id*200+j), int32(id*300+j), uint16(id*10+j)))
			}
		}(i)
	}

	wg.Wait()

	name := obj.Name()
	loc := obj.Location()

	if len(name) == 0 {
		t.Error("Name is empty after mixed read/write")
	}
	if loc.X < 0 || loc.Y < 0 || loc.Z < 0 {
		t.Errorf("Invalid location after mixed read/write: %+v", loc)
	}
}

func BenchmarkWorldObject_Location(b *testing.B) {
	obj := NewWorldObject(1, "Test", NewLocation(100, 200, 300, 1000))

	b.ResetTimer()
	for b.Loop() {
		_ = obj.Location()
	}
}

func BenchmarkWorldObject_SetLocation(b *testing.B) {
	obj := NewWorldObject(1, "Test", NewLocation(0, 0, 0, 0))
	loc := NewLocation(100, 200, 300, 1000)

	b.ResetTimer()
	for b.Loop() {
		obj.SetLocation(loc)
	}
}
